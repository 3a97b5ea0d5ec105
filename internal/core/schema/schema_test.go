package schema

import (
	"testing"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ClusterHasSchemaUnlessCustomEditor(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	for _, kind := range c.Kinds(core.EnvCluster, catalog.WithCapabilities(catalog.CapabilityDNSServer)) {
		entry := c.Lookup(core.EnvCluster, kind)
		switch e := entry.(type) {
		case catalog.ActionList:
			for _, a := range e {
				_, ok := Resolve(core.EnvCluster, kind, a.Key)
				assert.True(t, ok, "%s/%s", kind, a.Key)
			}
		case catalog.FieldSet:
			_, ok := Resolve(core.EnvCluster, kind, "")
			assert.True(t, ok, "%s", kind)
		case catalog.CustomEditor:
			_, ok := Resolve(core.EnvCluster, kind, "")
			assert.False(t, ok, "%s", kind)
		}
	}
}

func TestResolve_Physical(t *testing.T) {
	t.Parallel()

	_, ok := Resolve(core.EnvPhysical, catalog.KindProcess, "")
	assert.True(t, ok)

	_, ok = Resolve(core.EnvPhysical, catalog.KindDisk, "disk-fill")
	assert.False(t, ok)
	assert.NoError(t, Validate(core.EnvPhysical, catalog.KindDisk, "disk-fill", core.Values{}))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		env        core.Environment
		kind       core.Kind
		action     string
		values     core.Values
		wantFields []string
		wantErr    error
	}{
		{
			name:   "DelayWithLatency",
			env:    core.EnvCluster,
			kind:   catalog.KindNetwork,
			action: "delay",
			values: core.Values{"latency": "10ms"},
		},
		{
			name:       "DelayMissingLatency",
			env:        core.EnvCluster,
			kind:       catalog.KindNetwork,
			action:     "delay",
			values:     core.Values{"latency": ""},
			wantFields: []string{"latency"},
			wantErr:    core.ErrRequired,
		},
		{
			name:       "DelayMalformedLatency",
			env:        core.EnvCluster,
			kind:       catalog.KindNetwork,
			action:     "delay",
			values:     core.Values{"latency": "soon"},
			wantFields: []string{"latency"},
			wantErr:    core.ErrInvalidValue,
		},
		{
			name:   "PodFailureAcceptsAction",
			env:    core.EnvCluster,
			kind:   catalog.KindPod,
			action: "pod-failure",
			values: core.Values{"action": "pod-failure"},
		},
		{
			name:       "ContainerKillNeedsNames",
			env:        core.EnvCluster,
			kind:       catalog.KindPod,
			action:     "container-kill",
			values:     core.Values{"containerNames": []any{}},
			wantFields: []string{"containerNames"},
			wantErr:    core.ErrRequired,
		},
		{
			name:   "ProcessWithGoInt",
			env:    core.EnvPhysical,
			kind:   catalog.KindProcess,
			values: core.Values{"process": "nginx", "signal": 9},
		},
		{
			name:       "ProcessSignalOutOfRange",
			env:        core.EnvPhysical,
			kind:       catalog.KindProcess,
			values:     core.Values{"process": "nginx", "signal": 100},
			wantFields: []string{"signal"},
			wantErr:    core.ErrInvalidValue,
		},
		{
			name:       "ProcessMissingEverything",
			env:        core.EnvPhysical,
			kind:       catalog.KindProcess,
			values:     core.Values{},
			wantFields: []string{"process", "signal"},
			wantErr:    core.ErrRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.env, tt.kind, tt.action, tt.values)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			var verrs core.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantFields, verrs.Fields())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, core.IsUserFacing(err))
		})
	}
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	fields := catalog.FieldSchema{
		{Name: "mode", Type: catalog.TypeSelect, Options: []string{"a", "b"}, Required: true},
		{Name: "count", Type: catalog.TypeInteger},
		{Name: "tags", Type: catalog.TypeArray},
	}
	s := FromFields(fields)

	js := s.JSONSchema()
	assert.Equal(t, "object", js.Type)
	assert.Equal(t, []string{"mode"}, js.Required)
	assert.Equal(t, []any{"a", "b"}, js.Properties["mode"].Enum)
	assert.Equal(t, "string", js.Properties["tags"].Items.Type)

	require.NoError(t, s.Validate(core.Values{"mode": "a", "count": 3, "tags": []string{"x"}}))

	var verrs core.ValidationErrors
	require.ErrorAs(t, s.Validate(core.Values{"mode": "c", "count": 1.5}), &verrs)
	assert.Equal(t, []string{"mode", "count"}, verrs.Fields())
}
