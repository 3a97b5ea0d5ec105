package catalog

import (
	"fmt"

	"github.com/dagu-org/faultline/internal/core"
)

// Entry is the shape registered for a kind. It is one of ActionList,
// FieldSet or CustomEditor; the set is sealed by the unexported method.
type Entry interface {
	entry()
}

// Action is a named sub-variant of a kind with its own fields.
type Action struct {
	Key               string      `json:"key"`
	DisplayName       string      `json:"name"`
	Fields            FieldSchema `json:"fields,omitempty"`
	SubmitImmediately bool        `json:"submitImmediately,omitempty"`
}

// ActionList is a kind that offers sub-actions.
type ActionList []Action

// Find returns the action with the given key.
func (l ActionList) Find(key string) (Action, bool) {
	for _, a := range l {
		if a.Key == key {
			return a, true
		}
	}
	return Action{}, false
}

// Keys returns the action keys in order.
func (l ActionList) Keys() []string {
	keys := make([]string, len(l))
	for i, a := range l {
		keys[i] = a.Key
	}
	return keys
}

// FieldSet is a kind edited directly through one field schema.
type FieldSet struct {
	Fields FieldSchema
}

// CustomEditor marks a kind whose form is owned by a dedicated editor.
type CustomEditor struct {
	Editor string
}

func (ActionList) entry()   {}
func (FieldSet) entry()     {}
func (CustomEditor) entry() {}

// Match dispatches on the shape of the entry. Every shape must be handled.
func Match[T any](
	e Entry,
	onActions func(ActionList) T,
	onFields func(FieldSet) T,
	onCustom func(CustomEditor) T,
) T {
	switch v := e.(type) {
	case ActionList:
		return onActions(v)
	case FieldSet:
		return onFields(v)
	case CustomEditor:
		return onCustom(v)
	default:
		panic(&core.ProgrammingError{Err: fmt.Errorf("unexpected catalog entry %T", e)})
	}
}

// HasActions reports whether the entry offers sub-actions.
func HasActions(e Entry) bool {
	_, ok := e.(ActionList)
	return ok
}
