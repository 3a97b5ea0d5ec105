// Package schedule holds the parameters of a recurring experiment.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
)

// ConcurrencyPolicy decides what happens when a run is due while the
// previous one is still active.
type ConcurrencyPolicy string

const (
	ConcurrencyForbid ConcurrencyPolicy = "Forbid"
	ConcurrencyAllow  ConcurrencyPolicy = "Allow"
)

var errNoSchedule = errors.New("schedule is required")

// cronParser accepts the five standard fields plus descriptors such as
// "@hourly" or "@every 1h".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Params are the values of the scheduling step.
type Params struct {
	Schedule                string            `json:"schedule" mapstructure:"schedule"`
	StartingDeadlineSeconds *int64            `json:"startingDeadlineSeconds,omitempty" mapstructure:"startingDeadlineSeconds"`
	ConcurrencyPolicy       ConcurrencyPolicy `json:"concurrencyPolicy,omitempty" mapstructure:"concurrencyPolicy"`
	HistoryLimit            *int              `json:"historyLimit,omitempty" mapstructure:"historyLimit"`
}

// Defaults returns the initial values of the scheduling step.
func Defaults() Params {
	limit := 1
	return Params{
		ConcurrencyPolicy: ConcurrencyForbid,
		HistoryLimit:      &limit,
	}
}

// Decode reads params from a loosely typed map. Missing keys keep their
// defaults.
func Decode(raw map[string]any) (Params, error) {
	p := Defaults()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Params{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Params{}, fmt.Errorf("failed to decode schedule: %w", err)
	}
	return p, nil
}

// Parse parses a cron expression.
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errNoSchedule
	}
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Validate returns core.ValidationErrors for every invalid parameter.
func (p Params) Validate() error {
	var errs core.ValidationErrors
	if strings.TrimSpace(p.Schedule) == "" {
		errs.Add("schedule", nil, core.ErrRequired)
	} else if _, err := Parse(p.Schedule); err != nil {
		errs.Add("schedule", p.Schedule, fmt.Errorf("%w: %v", core.ErrInvalidValue, err))
	}
	if p.StartingDeadlineSeconds != nil && *p.StartingDeadlineSeconds < 0 {
		errs.Add("startingDeadlineSeconds", *p.StartingDeadlineSeconds, core.ErrInvalidValue)
	}
	switch p.ConcurrencyPolicy {
	case "", ConcurrencyForbid, ConcurrencyAllow:
	default:
		errs.Add("concurrencyPolicy", p.ConcurrencyPolicy, core.ErrInvalidValue)
	}
	if p.HistoryLimit != nil && *p.HistoryLimit < 1 {
		errs.Add("historyLimit", *p.HistoryLimit, core.ErrInvalidValue)
	}
	return errs.OrNil()
}

// Fields returns the set parameters keyed by their wire names.
// Unset optional values are omitted.
func (p Params) Fields() map[string]any {
	out := map[string]any{"schedule": strings.TrimSpace(p.Schedule)}
	if p.StartingDeadlineSeconds != nil {
		out["startingDeadlineSeconds"] = *p.StartingDeadlineSeconds
	}
	if p.ConcurrencyPolicy != "" {
		out["concurrencyPolicy"] = string(p.ConcurrencyPolicy)
	}
	if p.HistoryLimit != nil {
		out["historyLimit"] = *p.HistoryLimit
	}
	return out
}

// Next returns the next n activation times after t. It returns no times
// when n <= 0.
func (p Params) Next(t time.Time, n int) ([]time.Time, error) {
	s, err := Parse(p.Schedule)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	times := make([]time.Time, 0, n)
	for range n {
		t = s.Next(t)
		times = append(times, t)
	}
	return times, nil
}
