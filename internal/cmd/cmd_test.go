package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dagu-org/faultline/internal/cmd"
	"github.com/dagu-org/faultline/internal/cmn/config"
	"github.com/dagu-org/faultline/internal/persis/filenode"
	"github.com/dagu-org/faultline/internal/service/nodeapi"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cmdTest is a helper struct to test commands.
type cmdTest struct {
	name        string
	args        []string
	expectedOut []string
	wantErr     bool
}

// setupHome isolates the config and data directories of a test.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FAULTLINE_HOME", home)
	return home
}

func runCommand(t *testing.T, command *cobra.Command, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "root", SilenceErrors: true}
	root.AddCommand(command)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func runCases(t *testing.T, newCmd func() *cobra.Command, tests []cmdTest) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCommand(t, newCmd(), tc.args...)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tc.expectedOut {
				assert.Contains(t, out, s)
			}
		})
	}
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, cmd.Version(), "version")
	require.NoError(t, err)
	assert.Equal(t, config.Version+"\n", out)
}

func TestKinds(t *testing.T) {
	setupHome(t)
	runCases(t, cmd.Kinds, []cmdTest{
		{
			name:        "Cluster",
			args:        []string{"kinds"},
			expectedOut: []string{"NetworkFault", "delay", "PodFault", "pod-failure*", "StressFault", "stress"},
		},
		{
			name:        "Physical",
			args:        []string{"kinds", "--env", "physical"},
			expectedOut: []string{"DiskFault", "disk-fill", "ProcessFault"},
		},
		{
			name:    "UnknownEnv",
			args:    []string{"kinds", "--env", "mainframe"},
			wantErr: true,
		},
	})
}

func TestNodesLocal(t *testing.T) {
	setupHome(t)

	out, err := runCommand(t, cmd.Nodes(), "nodes", "add", "--local", "node-1", "10.0.0.1:31767")
	require.NoError(t, err)
	assert.Contains(t, out, "10.0.0.1:31767")

	_, err = runCommand(t, cmd.Nodes(), "nodes", "add", "--local", "node-1", "10.0.0.2:31767")
	assert.Error(t, err, "duplicate name")

	out, err = runCommand(t, cmd.Nodes(), "nodes", "list", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "node-1")

	_, err = runCommand(t, cmd.Nodes(), "nodes", "remove", "--local", "ghost")
	assert.Error(t, err)

	out, err = runCommand(t, cmd.Nodes(), "nodes", "remove", "--local", "node-1")
	require.NoError(t, err)
	assert.NotContains(t, out, "node-1")
}

func TestBuild_OneShot(t *testing.T) {
	setupHome(t)
	path := writePlan(t, `
environment: cluster
target:
  kind: NetworkFault
  action: delay
  values:
    latency: 10ms
basic:
  name: network-delay
  namespace: chaos-testing
  labels: ["team: sre"]
  scope:
    namespaces: [default]
  scheduler:
    duration: 30s
`)

	out, err := runCommand(t, cmd.Build(), "build", "-f", path)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "NetworkFault", body["kind"])
	assert.Equal(t, "30s", body["duration"])
	assert.NotContains(t, body, "scheduler")
	assert.Equal(t, map[string]any{"team": "sre"}, body["labels"])
	assert.Equal(t, map[string]any{"latency": "10ms", "action": "delay"}, body["network_fault"])
}

func TestBuild_RecurringDryRun(t *testing.T) {
	setupHome(t)
	path := writePlan(t, `
environment: physical
mode: recurring
target:
  kind: DiskFault
  action: disk-fill
  values:
    size: 1G
basic:
  name: disk-fill
  scheduler:
    duration: 5m
schedule:
  schedule: "@every 1h"
nodes:
  - name: node-1
    address: 10.0.0.1:31767
`)

	out, err := runCommand(t, cmd.Build(), "build", "-f", path)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "Schedule", body["kind"])
	assert.NotContains(t, body, "scheduler")

	spec, ok := body["spec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "@every 1h", spec["schedule"])
	assert.NotContains(t, spec, "duration")
}

func TestBuild_PlanErrors(t *testing.T) {
	setupHome(t)
	runCases(t, cmd.Build, []cmdTest{
		{
			name:    "MissingKind",
			args:    []string{"build", "-f", writePlan(t, "environment: cluster\n")},
			wantErr: true,
		},
		{
			name:    "UnknownField",
			args:    []string{"build", "-f", writePlan(t, "target:\n  kind: PodFault\nflavor: spicy\n")},
			wantErr: true,
		},
		{
			name: "InvalidBasic",
			args: []string{"build", "-f", writePlan(t, `
target:
  kind: PodFault
  action: pod-failure
basic:
  name: Not_Valid
`)},
			wantErr: true,
		},
		{
			name: "NodesOutsidePhysical",
			args: []string{"build", "-f", writePlan(t, `
target:
  kind: PodFault
  action: pod-failure
nodes:
  - name: node-1
    address: 10.0.0.1:31767
`)},
			wantErr: true,
		},
		{
			name:    "NoFile",
			args:    []string{"build"},
			wantErr: true,
		},
	})
}

func TestBuild_SubmitRecurringPhysical(t *testing.T) {
	setupHome(t)

	store, err := filenode.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	registry := nodeapi.New(&config.Config{Core: config.Core{LogFormat: "text"}}, store).Handler()

	var (
		mu        sync.Mutex
		submitted map[string]any
	)
	mux := http.NewServeMux()
	mux.Handle("/api/node/", registry)
	mux.HandleFunc("POST /api/schedules/new", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	path := writePlan(t, `
environment: physical
mode: recurring
target:
  kind: DiskFault
  action: disk-fill
  values:
    size: 1G
basic:
  name: disk-fill
schedule:
  schedule: "@every 1h"
  historyLimit: 2
nodes:
  - name: node-1
    address: 10.0.0.1:31767
`)

	_, err = runCommand(t, cmd.Build(), "build", "-f", path, "--submit", "--api-url", srv.URL)
	require.NoError(t, err)

	nodes, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "node-1", nodes[0].Name)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, submitted)
	assert.Equal(t, "Schedule", submitted["kind"])
	spec, ok := submitted["spec"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "@every 1h", spec["schedule"])
	assert.Equal(t, "DiskFault", spec["type"])
	assert.Equal(t, float64(2), spec["historyLimit"])
	assert.Equal(t, map[string]any{"size": "1G", "action": "disk-fill"}, spec["disk_fault"])
	scope, ok := submitted["scope"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"10.0.0.1:31767"}, scope["addresses"])
}
