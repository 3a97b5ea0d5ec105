package assemble

import (
	"maps"

	"github.com/dagu-org/faultline/internal/core/schedule"
)

// KindSchedule is the kind of a recurring experiment envelope.
const KindSchedule = "Schedule"

// OneShot builds the body of a duration-based experiment:
// {name, namespace, labels, annotations, scope, duration, kind, <snake>: payload}.
// scheduler.duration is promoted to the top level and overrides are applied
// last, key by key.
func OneShot(basic map[string]any, f Fragment, overrides map[string]any) map[string]any {
	out, duration := withoutScheduler(basic)
	out["duration"] = duration
	mergeShallow(out, f.Object())
	mergeShallow(out, overrides)
	return out
}

// Recurring builds the body of a schedule-based experiment. The metadata of
// the basic step stays at the top level and the fragment moves into the
// Schedule envelope:
// {..., kind: "Schedule", spec: {schedule, ..., type: K, <snake(K)>: payload}}.
// The scheduler block is dropped; runs are driven by the schedule alone.
func Recurring(basic map[string]any, f Fragment, p schedule.Params) map[string]any {
	out, _ := withoutScheduler(basic)

	spec := p.Fields()
	spec["type"] = string(f.Kind)
	spec[f.Key()] = map[string]any(f.Payload.Clone())

	out["kind"] = KindSchedule
	out["spec"] = spec
	return out
}

func withoutScheduler(basic map[string]any) (map[string]any, string) {
	out := maps.Clone(basic)
	if out == nil {
		out = make(map[string]any)
	}
	var duration string
	if sched, ok := out["scheduler"].(map[string]any); ok {
		duration, _ = sched["duration"].(string)
	}
	delete(out, "scheduler")
	return out, duration
}
