package assemble

import (
	"encoding/json"
	"testing"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/dagu-org/faultline/internal/core/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind core.Kind
		want string
	}{
		{"NetworkFault", "network_fault"},
		{"DNSFault", "dns_fault"},
		{"IOFault", "io_fault"},
		{"AWSFault", "aws_fault"},
		{"JVMFault", "jvm_fault"},
		{"PodFault", "pod_fault"},
		{"PhysicalMachineChaos", "physical_machine_chaos"},
		{"network_fault", "network_fault"},
		{"Fault2Go", "fault_2_go"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SnakeCase(tt.kind))
		})
	}
}

func TestSnakeCase_IdempotentAndInjectiveOverCatalog(t *testing.T) {
	t.Parallel()

	seen := make(map[string]core.Kind)
	for _, kind := range catalog.Default().AllKinds() {
		key := SnakeCase(kind)
		assert.Equal(t, key, SnakeCase(core.Kind(key)), "not idempotent for %s", kind)
		if other, dup := seen[key]; dup {
			t.Errorf("%s and %s both map to %s", kind, other, key)
		}
		seen[key] = kind
	}
}

func TestNewFragment(t *testing.T) {
	t.Parallel()

	t.Run("NoSubActions", func(t *testing.T) {
		t.Parallel()
		f := NewFragment("StressFault", "", false, core.Values{"cpuLoad": 50})
		assert.Equal(t, map[string]any{
			"kind":         "StressFault",
			"stress_fault": map[string]any{"cpuLoad": 50},
		}, f.Object())
	})

	t.Run("SubmitImmediately", func(t *testing.T) {
		t.Parallel()
		f := NewFragment("PodFault", "pod-failure", true, core.Values{"action": "pod-failure"})
		assert.Equal(t, core.Values{"action": "pod-failure"}, f.Payload)
	})

	t.Run("SubmitImmediatelyWithValues", func(t *testing.T) {
		t.Parallel()
		f := NewFragment("HostFault", "shutdown", true, core.Values{"force": true})
		assert.Equal(t, core.Values{"force": true, "action": "shutdown"}, f.Payload)
	})

	t.Run("ActionMerged", func(t *testing.T) {
		t.Parallel()
		values := core.Values{"latency": "10ms"}
		f := NewFragment("NetworkFault", "delay", false, values)
		assert.Equal(t, core.Values{"latency": "10ms", "action": "delay"}, f.Payload)
		assert.NotContains(t, values, "action")
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(NewFragment("NetworkFault", "delay", false, core.Values{"latency": "10ms"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"kind":"NetworkFault","network_fault":{"latency":"10ms","action":"delay"}}`, string(data))
	})
}

func basicOutput() map[string]any {
	return map[string]any{
		"name":        "disk-burn",
		"namespace":   "default",
		"labels":      map[string]any{},
		"annotations": map[string]any{},
		"scope":       map[string]any{"addresses": []any{"10.0.0.1:31767"}},
		"scheduler":   map[string]any{"duration": "5m"},
	}
}

func TestOneShot(t *testing.T) {
	t.Parallel()

	f := NewFragment("NetworkFault", "delay", false, core.Values{"latency": "10ms"})
	out := OneShot(basicOutput(), f, map[string]any{"namespace": "chaos"})

	assert.NotContains(t, out, "scheduler")
	assert.Equal(t, "5m", out["duration"])
	assert.Equal(t, "NetworkFault", out["kind"])
	assert.Equal(t, map[string]any{"latency": "10ms", "action": "delay"}, out["network_fault"])
	assert.Equal(t, "chaos", out["namespace"], "overrides apply last")
	assert.Equal(t, "disk-burn", out["name"])
}

func TestRecurring(t *testing.T) {
	t.Parallel()

	t.Run("DiskFault", func(t *testing.T) {
		t.Parallel()
		basic := basicOutput()
		f := NewFragment("DiskFault", "disk-fill", false, core.Values{"path": "/tmp", "size": "1GB"})
		out := Recurring(basic, f, schedule.Params{Schedule: "@every 1h"})

		assert.Equal(t, "Schedule", out["kind"])
		assert.NotContains(t, out, "scheduler")
		assert.NotContains(t, out, "disk_fault")
		assert.Equal(t, "disk-burn", out["name"])
		assert.Equal(t, map[string]any{
			"schedule": "@every 1h",
			"type":     "DiskFault",
			"disk_fault": map[string]any{
				"path":   "/tmp",
				"size":   "1GB",
				"action": "disk-fill",
			},
		}, out["spec"])
		assert.NotContains(t, out, "duration")
		assert.Contains(t, basic, "scheduler", "input must not be mutated")
	})

	t.Run("AllParams", func(t *testing.T) {
		t.Parallel()
		deadline := int64(60)
		limit := 3
		out := Recurring(map[string]any{"name": "x"}, NewFragment("TimeFault", "", false, core.Values{"timeOffset": "-1h"}), schedule.Params{
			Schedule:                "*/5 * * * *",
			StartingDeadlineSeconds: &deadline,
			ConcurrencyPolicy:       schedule.ConcurrencyAllow,
			HistoryLimit:            &limit,
		})
		data, err := json.Marshal(out)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"name": "x",
			"kind": "Schedule",
			"spec": {
				"schedule": "*/5 * * * *",
				"startingDeadlineSeconds": 60,
				"concurrencyPolicy": "Allow",
				"historyLimit": 3,
				"type": "TimeFault",
				"time_fault": {"timeOffset": "-1h"}
			}
		}`, string(data))
	})
}
