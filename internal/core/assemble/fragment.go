// Package assemble turns committed selections into the request bodies the
// backend accepts.
package assemble

import (
	"encoding/json"
	"maps"

	"github.com/dagu-org/faultline/internal/core"
)

// Fragment is the target part of an experiment: the kind and its payload,
// keyed by the snake-cased kind.
type Fragment struct {
	Kind    core.Kind
	Payload core.Values
}

// Key returns the discriminator key of the payload.
func (f Fragment) Key() string {
	return SnakeCase(f.Kind)
}

// Object returns the map form {"kind": K, "<snake(K)>": payload}.
func (f Fragment) Object() map[string]any {
	return map[string]any{
		"kind":  string(f.Kind),
		f.Key(): map[string]any(f.Payload.Clone()),
	}
}

// MarshalJSON implements json.Marshaler.
func (f Fragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Object())
}

// IsZero reports whether the fragment carries no kind.
func (f Fragment) IsZero() bool {
	return f.Kind == ""
}

// NewFragment builds the fragment of a (kind, action, values) selection.
// immediate reports whether the action is submit-immediately in the catalog
// the selection was made from.
//
// A submit-immediately action whose values hold nothing but the action
// marker yields {action} verbatim. Any other action is merged into a copy
// of the values. Kinds without sub-actions keep their values unchanged.
func NewFragment(kind core.Kind, action string, immediate bool, values core.Values) Fragment {
	var payload core.Values
	switch {
	case action != "" && immediate && onlyActionMarker(values, action):
		payload = core.Values{"action": action}
	case action != "":
		payload = values.Clone()
		payload["action"] = action
	default:
		payload = values.Clone()
	}
	return Fragment{Kind: kind, Payload: payload}
}

func onlyActionMarker(values core.Values, action string) bool {
	for k, v := range values {
		if k != "action" || v != action {
			return false
		}
	}
	return true
}

// mergeShallow applies src over dst key by key; nested maps are replaced,
// not merged.
func mergeShallow(dst map[string]any, src map[string]any) {
	maps.Copy(dst, src)
}
