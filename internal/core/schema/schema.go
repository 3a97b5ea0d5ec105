// Package schema resolves the validation schema of a (kind, action) pair and
// validates editor values against it.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/google/jsonschema-go/jsonschema"
)

// Schema validates the values of one generic editor.
type Schema struct {
	object     *jsonschema.Schema
	properties []*property
}

type property struct {
	name     string
	required bool
	entry    *schemaEntry
}

type schemaEntry struct {
	schema      *jsonschema.Schema
	resolved    atomic.Pointer[jsonschema.Resolved]
	resolveOnce sync.Once
	resolveErr  error
}

// FromFields derives a schema from a field list.
func FromFields(fields catalog.FieldSchema) *Schema {
	s := &Schema{
		object: &jsonschema.Schema{
			Type:       "object",
			Properties: make(map[string]*jsonschema.Schema, len(fields)),
		},
	}
	for _, f := range fields {
		ps := fieldSchema(f)
		s.object.Properties[f.Name] = ps
		if f.Required {
			s.object.Required = append(s.object.Required, f.Name)
		}
		s.properties = append(s.properties, &property{
			name:     f.Name,
			required: f.Required,
			entry:    &schemaEntry{schema: ps},
		})
	}
	return s
}

func fieldSchema(f catalog.Field) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: f.Description}
	switch f.Type {
	case catalog.TypeNumber:
		s.Type = "number"
	case catalog.TypeInteger:
		s.Type = "integer"
	case catalog.TypeBoolean:
		s.Type = "boolean"
	case catalog.TypeArray:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string"}
	case catalog.TypeSelect:
		s.Type = "string"
		for _, o := range f.Options {
			s.Enum = append(s.Enum, o)
		}
	default:
		s.Type = "string"
	}
	s.Pattern = f.Pattern
	s.Minimum = f.Min
	s.Maximum = f.Max
	return s
}

// JSONSchema returns the object schema, e.g. for the kinds command.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	return s.object
}

// Validate checks values field by field and returns core.ValidationErrors
// naming every field that failed. Values are normalized through JSON first
// so that Go integer types compare like decoded form input.
func (s *Schema) Validate(values core.Values) error {
	normalized, err := normalize(values)
	if err != nil {
		return core.ValidationErrors{{Field: "values", Err: fmt.Errorf("%w: %v", core.ErrInvalidValue, err)}}
	}

	var errs core.ValidationErrors
	for _, p := range s.properties {
		v := normalized[p.name]
		if isEmpty(v) {
			if p.required {
				errs.Add(p.name, nil, core.ErrRequired)
			}
			continue
		}
		resolved, err := p.entry.getResolved()
		if err != nil {
			panic(&core.ProgrammingError{Err: fmt.Errorf("schema for field %s: %w", p.name, err)})
		}
		if err := resolved.Validate(v); err != nil {
			errs.Add(p.name, v, fmt.Errorf("%w: %v", core.ErrInvalidValue, err))
		}
	}
	return errs.OrNil()
}

func (e *schemaEntry) getResolved() (*jsonschema.Resolved, error) {
	e.resolveOnce.Do(func() {
		resolved, err := e.schema.Resolve(&jsonschema.ResolveOptions{
			ValidateDefaults: true,
		})
		if err != nil {
			e.resolveErr = err
			return
		}
		e.resolved.Store(resolved)
	})

	if e.resolveErr != nil {
		return nil, e.resolveErr
	}
	return e.resolved.Load(), nil
}

func normalize(values core.Values) (map[string]any, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
