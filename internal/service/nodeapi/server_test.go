package nodeapi_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dagu-org/faultline/internal/clients/dashboard"
	"github.com/dagu-org/faultline/internal/cmn/config"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/dagu-org/faultline/internal/persis/filenode"
	"github.com/dagu-org/faultline/internal/service/nodeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Core:   config.Core{LogFormat: "text"},
		Server: config.Server{Host: "127.0.0.1", Port: 0},
	}
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := filenode.New(context.Background(), filepath.Join(t.TempDir(), "nodes"))
	require.NoError(t, err)
	srv := httptest.NewServer(nodeapi.New(testConfig(), store).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestNodeAPI_WithClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv := setupServer(t)
	adapter := noderegistry.NewAdapter(dashboard.NewClient(srv.URL))

	require.NoError(t, adapter.Add(ctx, "node-b", "10.0.0.2:31767"))
	require.NoError(t, adapter.Add(ctx, "node-a", "10.0.0.1:31767"))
	assert.Equal(t, []string{"10.0.0.1:31767", "10.0.0.2:31767"}, adapter.Addresses())

	var conflict *core.ConflictError
	require.ErrorAs(t, adapter.Add(ctx, "node-a", "10.0.0.3:31767"), &conflict)

	require.NoError(t, adapter.Remove(ctx, "node-a"))
	require.Len(t, adapter.Nodes(), 1)

	var notFound *core.NotFoundError
	require.ErrorAs(t, adapter.Remove(ctx, "node-a"), &notFound)
}

func TestNodeAPI_Responses(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "Created", method: http.MethodPost, path: "/api/node/registry", body: `{"name":"n1","kind":"physical","config":"aDox"}`, wantStatus: http.StatusCreated},
		{name: "Conflict", method: http.MethodPost, path: "/api/node/registry", body: `{"name":"n1","kind":"physical","config":"aDox"}`, wantStatus: http.StatusConflict},
		{name: "MissingName", method: http.MethodPost, path: "/api/node/registry", body: `{"config":"aDox"}`, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "WrongKind", method: http.MethodPost, path: "/api/node/registry", body: `{"name":"n2","kind":"k8s","config":"aDox"}`, wantStatus: http.StatusBadRequest, wantField: "kind"},
		{name: "Malformed", method: http.MethodPost, path: "/api/node/registry", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "List", method: http.MethodGet, path: "/api/node/list", wantStatus: http.StatusOK},
		{name: "DeleteMissing", method: http.MethodDelete, path: "/api/node/delete/ghost", wantStatus: http.StatusNotFound},
		{name: "Delete", method: http.MethodDelete, path: "/api/node/delete/n1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		require.NoError(t, err, tt.name)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, tt.name)

		assert.Equal(t, tt.wantStatus, resp.StatusCode, tt.name)
		if tt.wantField != "" {
			var body struct {
				Field string `json:"field"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), tt.name)
			assert.Equal(t, tt.wantField, body.Field, tt.name)
		}
		_ = resp.Body.Close()
	}
}

func TestNodeAPI_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := filenode.New(ctx, filepath.Join(t.TempDir(), "nodes"))
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	srv := httptest.NewServer(nodeapi.New(testConfig(), store, nodeapi.WithRegistry(registry)).Handler())
	t.Cleanup(srv.Close)

	client := dashboard.NewClient(srv.URL)
	require.NoError(t, client.Add(ctx, noderegistry.Node{Name: "node-1", Kind: noderegistry.KindPhysical, Config: noderegistry.EncodeAddress("10.0.0.1:31767")}))
	_, err = client.List(ctx)
	require.NoError(t, err)
	var notFound *core.NotFoundError
	require.ErrorAs(t, client.Delete(ctx, "ghost"), &notFound)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `faultline_node_registry_requests_total{code="201",op="add"} 1`)
	assert.Contains(t, out, `faultline_node_registry_requests_total{code="200",op="list"} 1`)
	assert.Contains(t, out, `faultline_node_registry_requests_total{code="404",op="delete"} 1`)
	assert.Contains(t, out, "faultline_node_registry_nodes 1")
}

func TestNodeAPI_CORS(t *testing.T) {
	t.Parallel()
	store, err := filenode.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Server.AllowedOrigins = []string{"https://ui.example.com"}
	srv := httptest.NewServer(nodeapi.New(cfg, store).Handler())
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/node/list", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://ui.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "https://ui.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	store, err := filenode.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := nodeapi.New(testConfig(), store, nodeapi.WithListener(listener))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := dashboard.NewClient("http://" + listener.Addr().String())
	require.Eventually(t, func() bool {
		_, err := client.List(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
