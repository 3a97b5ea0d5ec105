package catalog

import "github.com/dagu-org/faultline/internal/core"

// FieldType is the input type of a generic editor field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeSelect  FieldType = "select"
)

// Field describes one input of a generic editor.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label,omitempty"`
	Type        FieldType `json:"type"`
	Default     any       `json:"default,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Description string    `json:"description,omitempty"`
}

// FieldSchema is the ordered list of fields rendered by a generic editor.
type FieldSchema []Field

// Defaults returns the initial values of a freshly opened editor.
// Array fields start empty rather than nil so they serialize as [].
func (s FieldSchema) Defaults() core.Values {
	values := make(core.Values, len(s))
	for _, f := range s {
		switch {
		case f.Default != nil:
			values[f.Name] = cloneDefault(f.Default)
		case f.Type == TypeArray:
			values[f.Name] = []any{}
		case f.Type == TypeBoolean:
			values[f.Name] = false
		case f.Type == TypeString || f.Type == TypeSelect:
			values[f.Name] = ""
		}
	}
	return values
}

// Names returns the field names in order.
func (s FieldSchema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name.
func (s FieldSchema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func cloneDefault(v any) any {
	switch v := v.(type) {
	case []any:
		return append([]any{}, v...)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

func ptrFloat(f float64) *float64 { return &f }
