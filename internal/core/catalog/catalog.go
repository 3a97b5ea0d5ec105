// Package catalog is the closed registry of fault kinds and their actions.
//
// Every kind is registered per environment with exactly one entry shape:
// a list of actions, a single field schema, or a custom editor marker.
// The catalog is immutable once built and safe for concurrent reads.
package catalog

import (
	"fmt"
	"slices"

	"github.com/dagu-org/faultline/internal/core"
)

// CapabilityDNSServer gates DNSFault; it is enabled when the DNS server
// companion component has been deployed next to the controller.
const CapabilityDNSServer = "dns-server"

// KindDef registers one kind for one environment.
type KindDef struct {
	Kind  core.Kind
	Entry Entry
	// Requires names a capability that must be enabled for the kind to be listed.
	Requires string
}

// Catalog maps (environment, kind) to an entry.
type Catalog struct {
	envs map[core.Environment]*envCatalog
}

type envCatalog struct {
	defs    []KindDef
	entries map[core.Kind]Entry
}

// New builds a catalog and panics if a definition breaks an invariant:
// duplicate kinds, empty action lists, duplicate action keys, or a
// submit-immediately action that declares fields.
func New(defs map[core.Environment][]KindDef) *Catalog {
	c := &Catalog{
		envs: make(map[core.Environment]*envCatalog, len(defs)),
	}

	for env, kinds := range defs {
		ec := &envCatalog{entries: make(map[core.Kind]Entry, len(kinds))}
		for _, def := range kinds {
			if _, dup := ec.entries[def.Kind]; dup {
				panic(invariant("duplicate kind %s in %s", def.Kind, env))
			}
			if err := c.checkEntry(def); err != nil {
				panic(invariant("%s/%s: %v", env, def.Kind, err))
			}
			ec.entries[def.Kind] = def.Entry
			ec.defs = append(ec.defs, def)
		}
		c.envs[env] = ec
	}

	return c
}

func (c *Catalog) checkEntry(def KindDef) error {
	return Match(def.Entry,
		func(actions ActionList) error {
			if len(actions) == 0 {
				return fmt.Errorf("action list is empty")
			}
			seen := make(map[string]bool, len(actions))
			for _, a := range actions {
				if a.Key == "" {
					return fmt.Errorf("action key is empty")
				}
				if seen[a.Key] {
					return fmt.Errorf("duplicate action %s", a.Key)
				}
				seen[a.Key] = true
				if a.SubmitImmediately && len(a.Fields) > 0 {
					return fmt.Errorf("submit-immediately action %s declares fields", a.Key)
				}
			}
			return nil
		},
		func(FieldSet) error { return nil },
		func(ce CustomEditor) error {
			if ce.Editor == "" {
				return fmt.Errorf("custom editor name is empty")
			}
			return nil
		},
	)
}

// Lookup returns the entry of a kind. The catalog is closed, so asking for
// a kind it does not list is a programming error and panics.
func (c *Catalog) Lookup(env core.Environment, kind core.Kind) Entry {
	e, ok := c.LookupOK(env, kind)
	if !ok {
		panic(&core.ProgrammingError{Err: fmt.Errorf("%w: %s in %s", core.ErrUnknownKind, kind, env)})
	}
	return e
}

// LookupOK is the non-panicking variant of Lookup for surfaces that accept
// free-form input.
func (c *Catalog) LookupOK(env core.Environment, kind core.Kind) (Entry, bool) {
	ec, ok := c.envs[env]
	if !ok {
		return nil, false
	}
	e, ok := ec.entries[kind]
	return e, ok
}

// Option filters the kinds returned by Kinds.
type Option func(*listOptions)

type listOptions struct {
	capabilities map[string]bool
}

// WithCapabilities enables capability-gated kinds.
func WithCapabilities(caps ...string) Option {
	return func(o *listOptions) {
		for _, c := range caps {
			o.capabilities[c] = true
		}
	}
}

// Kinds lists the kinds of an environment in display order.
func (c *Catalog) Kinds(env core.Environment, opts ...Option) []core.Kind {
	o := &listOptions{capabilities: make(map[string]bool)}
	for _, opt := range opts {
		opt(o)
	}

	ec, ok := c.envs[env]
	if !ok {
		return nil
	}
	kinds := make([]core.Kind, 0, len(ec.defs))
	for _, def := range ec.defs {
		if def.Requires != "" && !o.capabilities[def.Requires] {
			continue
		}
		kinds = append(kinds, def.Kind)
	}
	return kinds
}

// AllKinds returns every distinct kind across environments, sorted.
func (c *Catalog) AllKinds() []core.Kind {
	seen := make(map[core.Kind]bool)
	var kinds []core.Kind
	for _, ec := range c.envs {
		for _, def := range ec.defs {
			if !seen[def.Kind] {
				seen[def.Kind] = true
				kinds = append(kinds, def.Kind)
			}
		}
	}
	slices.Sort(kinds)
	return kinds
}

// Action returns an action of a kind that offers sub-actions.
func (c *Catalog) Action(env core.Environment, kind core.Kind, key string) (Action, bool) {
	e, ok := c.LookupOK(env, kind)
	if !ok {
		return Action{}, false
	}
	actions, ok := e.(ActionList)
	if !ok {
		return Action{}, false
	}
	return actions.Find(key)
}

// FieldsFor returns the generic field schema for (kind, action). The second
// result is false for custom-editor kinds and unknown actions.
func (c *Catalog) FieldsFor(env core.Environment, kind core.Kind, action string) (FieldSchema, bool) {
	e, ok := c.LookupOK(env, kind)
	if !ok {
		return nil, false
	}
	type result struct {
		fields FieldSchema
		ok     bool
	}
	r := Match(e,
		func(actions ActionList) result {
			a, ok := actions.Find(action)
			return result{a.Fields, ok}
		},
		func(fs FieldSet) result { return result{fs.Fields, action == ""} },
		func(CustomEditor) result { return result{} },
	)
	return r.fields, r.ok
}

func invariant(format string, args ...any) error {
	return &core.ProgrammingError{Err: fmt.Errorf("catalog: "+format, args...)}
}

var defaultCatalog = New(map[core.Environment][]KindDef{
	core.EnvCluster:  clusterKinds,
	core.EnvPhysical: physicalKinds,
})

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Lookup calls Lookup on the built-in catalog.
func Lookup(env core.Environment, kind core.Kind) Entry {
	return defaultCatalog.Lookup(env, kind)
}

// Kinds calls Kinds on the built-in catalog.
func Kinds(env core.Environment, opts ...Option) []core.Kind {
	return defaultCatalog.Kinds(env, opts...)
}
