package schedule

import (
	"testing"
	"time"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		params     Params
		wantFields []string
	}{
		{name: "Every", params: Params{Schedule: "@every 1h"}},
		{name: "FiveFields", params: Params{Schedule: "0 */2 * * *", ConcurrencyPolicy: ConcurrencyAllow}},
		{name: "Hourly", params: Params{Schedule: "@hourly", HistoryLimit: ptr(5)}},
		{name: "Empty", params: Params{}, wantFields: []string{"schedule"}},
		{name: "SixFields", params: Params{Schedule: "0 0 */2 * * *"}, wantFields: []string{"schedule"}},
		{
			name: "BadOptionals",
			params: Params{
				Schedule:                "@daily",
				StartingDeadlineSeconds: ptr(int64(-1)),
				ConcurrencyPolicy:       "Replace",
				HistoryLimit:            ptr(0),
			},
			wantFields: []string{"startingDeadlineSeconds", "concurrencyPolicy", "historyLimit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
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

func TestParams_Fields(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]any{"schedule": "@every 1h"}, Params{Schedule: " @every 1h "}.Fields())
	assert.Equal(t, map[string]any{
		"schedule":          "@daily",
		"concurrencyPolicy": "Forbid",
		"historyLimit":      1,
	}, Params{Schedule: "@daily", ConcurrencyPolicy: Defaults().ConcurrencyPolicy, HistoryLimit: Defaults().HistoryLimit}.Fields())
}

func TestParams_Next(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times, err := Params{Schedule: "@every 1h"}.Next(start, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{start.Add(time.Hour), start.Add(2 * time.Hour)}, times)

	_, err = Params{}.Next(start, 1)
	assert.Error(t, err)

	for _, n := range []int{0, -1} {
		times, err := Params{Schedule: "@every 1h"}.Next(start, n)
		require.NoError(t, err)
		assert.Empty(t, times)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	p, err := Decode(map[string]any{
		"schedule":                "@every 1h",
		"startingDeadlineSeconds": uint64(60),
		"historyLimit":            "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "@every 1h", p.Schedule)
	require.NotNil(t, p.StartingDeadlineSeconds)
	assert.Equal(t, int64(60), *p.StartingDeadlineSeconds)
	require.NotNil(t, p.HistoryLimit)
	assert.Equal(t, 3, *p.HistoryLimit)
	assert.Equal(t, ConcurrencyForbid, p.ConcurrencyPolicy)

	_, err = Decode(map[string]any{"cron": "@daily"})
	assert.Error(t, err)
}
