package basic

import (
	"testing"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterValues() Values {
	v := Defaults()
	v.Name = "net-delay"
	v.Scope.Namespaces = []string{"default"}
	return v
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		env        core.Environment
		mutate     func(*Values)
		wantFields []string
	}{
		{
			name:   "ValidCluster",
			env:    core.EnvCluster,
			mutate: func(*Values) {},
		},
		{
			name: "ValidPhysical",
			env:  core.EnvPhysical,
			mutate: func(v *Values) {
				v.Scope.Namespaces = nil
				v.Scope.Addresses = []string{"10.0.0.1:31767"}
			},
		},
		{
			name:       "Defaults",
			env:        core.EnvCluster,
			mutate:     func(v *Values) { *v = Defaults() },
			wantFields: []string{"name", "scope.namespaces"},
		},
		{
			name:       "NameNotDNS",
			env:        core.EnvCluster,
			mutate:     func(v *Values) { v.Name = "Net_Delay" },
			wantFields: []string{"name"},
		},
		{
			name:       "PhysicalNeedsAddress",
			env:        core.EnvPhysical,
			mutate:     func(*Values) {},
			wantFields: []string{"scope.addresses"},
		},
		{
			name: "FixedNeedsValue",
			env:  core.EnvCluster,
			mutate: func(v *Values) {
				v.Scope.Mode = ModeFixed
			},
			wantFields: []string{"scope.value"},
		},
		{
			name: "PercentOutOfRange",
			env:  core.EnvCluster,
			mutate: func(v *Values) {
				v.Scope.Mode = ModeFixedPercent
				v.Scope.Value = "150"
			},
			wantFields: []string{"scope.value"},
		},
		{
			name:       "UnknownMode",
			env:        core.EnvCluster,
			mutate:     func(v *Values) { v.Scope.Mode = "some" },
			wantFields: []string{"scope.mode"},
		},
		{
			name: "BadPairs",
			env:  core.EnvCluster,
			mutate: func(v *Values) {
				v.Labels = []string{"app: web", "broken"}
				v.Scope.LabelSelectors = []string{"tier=front end"}
			},
			wantFields: []string{"labels", "scope.label_selectors"},
		},
		{
			name:       "BadDuration",
			env:        core.EnvCluster,
			mutate:     func(v *Values) { v.Scheduler.Duration = "5 minutes" },
			wantFields: []string{"scheduler.duration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := clusterValues()
			tt.mutate(&v)
			err := v.Validate(tt.env)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			var verrs core.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantFields, verrs.Fields())
		})
	}
}

func TestOutput(t *testing.T) {
	t.Parallel()

	t.Run("Cluster", func(t *testing.T) {
		t.Parallel()
		v := clusterValues()
		v.Labels = []string{"app: web", "tier=front"}
		v.Annotations = []string{"owner: sre@example.com"}
		v.Scope.LabelSelectors = []string{"app=web"}
		v.Scope.Pods = []string{"default:web-0", "default:web-1"}
		v.Scheduler.Duration = "5m"

		out := v.Output(core.EnvCluster)
		assert.Equal(t, map[string]any{"app": "web", "tier": "front"}, out["labels"])
		assert.Equal(t, map[string]any{"owner": "sre@example.com"}, out["annotations"])
		assert.Equal(t, map[string]any{"duration": "5m"}, out["scheduler"])

		scope := out["scope"].(map[string]any)
		assert.Equal(t, []any{"default"}, scope["namespaces"])
		assert.Equal(t, map[string]any{"app": "web"}, scope["label_selectors"])
		assert.Equal(t, map[string]any{"default": []any{"web-0", "web-1"}}, scope["pods"])
		assert.Equal(t, []any{"all"}, scope["phase_selectors"])
		assert.NotContains(t, scope, "addresses")
	})

	t.Run("Physical", func(t *testing.T) {
		t.Parallel()
		v := Defaults()
		v.Name = "disk"
		v.Scope.Addresses = []string{"10.0.0.1:31767", " "}

		scope := v.Output(core.EnvPhysical)["scope"].(map[string]any)
		assert.Equal(t, map[string]any{
			"mode":      "one",
			"value":     "",
			"addresses": []any{"10.0.0.1:31767"},
		}, scope)
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	v, err := Decode(map[string]any{
		"name":  "from-plan",
		"scope": map[string]any{"namespaces": []any{"chaos"}, "mode": "all"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-plan", v.Name)
	assert.Equal(t, ModeAll, v.Scope.Mode)
	assert.Equal(t, []string{"all"}, v.Scope.PhaseSelectors)

	_, err = Decode(map[string]any{"nmae": "typo"})
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	t.Parallel()

	v := clusterValues()
	c := v.Clone()
	c.Scope.Namespaces[0] = "other"
	assert.Equal(t, "default", v.Scope.Namespaces[0])
}
