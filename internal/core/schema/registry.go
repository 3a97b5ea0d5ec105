package schema

import (
	"sync"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/catalog"
)

type key struct {
	env    core.Environment
	kind   core.Kind
	action string
}

// Registry maps (environment, kind, action) to a schema.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]*Schema)}
}

// Register stores the schema derived from fields. action is empty for
// kinds with a single field set.
func (r *Registry) Register(env core.Environment, kind core.Kind, action string, fields catalog.FieldSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key{env, kind, action}] = FromFields(fields)
}

// Resolve returns the schema registered for the pair, if any.
func (r *Registry) Resolve(env core.Environment, kind core.Kind, action string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[key{env, kind, action}]
	return s, ok
}

// Validate validates values against the registered schema.
// Returns nil if no schema is registered.
func (r *Registry) Validate(env core.Environment, kind core.Kind, action string, values core.Values) error {
	s, ok := r.Resolve(env, kind, action)
	if !ok {
		return nil
	}
	return s.Validate(values)
}

// physicalSchemas lists the physical kinds whose editors are checked before
// commit. Other physical editors are validated by the receiving agent.
var physicalSchemas = map[core.Kind]bool{
	catalog.KindProcess: true,
}

// Build derives the registry of a catalog. Every cluster action and field set
// gets a schema; custom-editor kinds never do.
func Build(c *catalog.Catalog) *Registry {
	r := NewRegistry()
	for _, env := range core.Environments {
		for _, kind := range c.Kinds(env, catalog.WithCapabilities(catalog.CapabilityDNSServer)) {
			if env == core.EnvPhysical && !physicalSchemas[kind] {
				continue
			}
			entry := c.Lookup(env, kind)
			catalog.Match(entry,
				func(actions catalog.ActionList) struct{} {
					for _, a := range actions {
						r.Register(env, kind, a.Key, a.Fields)
					}
					return struct{}{}
				},
				func(fs catalog.FieldSet) struct{} {
					r.Register(env, kind, "", fs.Fields)
					return struct{}{}
				},
				func(catalog.CustomEditor) struct{} { return struct{}{} },
			)
		}
	}
	return r
}

var defaultRegistry = Build(catalog.Default())

// Default returns the registry of the built-in catalog.
func Default() *Registry {
	return defaultRegistry
}

// Resolve calls Resolve on the default registry.
func Resolve(env core.Environment, kind core.Kind, action string) (*Schema, bool) {
	return defaultRegistry.Resolve(env, kind, action)
}

// Validate calls Validate on the default registry.
func Validate(env core.Environment, kind core.Kind, action string, values core.Values) error {
	return defaultRegistry.Validate(env, kind, action, values)
}
