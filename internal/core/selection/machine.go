// Package selection drives the target step of the experiment builder: the
// environment, kind, action and committed values of one session.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/assemble"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/dagu-org/faultline/internal/core/editor"
	"github.com/dagu-org/faultline/internal/core/schema"
	"github.com/looplab/fsm"
)

// State is a state of the selection machine.
type State string

const (
	StateIdle         State = "idle"
	StateKindChosen   State = "kind_chosen"
	StateActionChosen State = "action_chosen"
	StateCommitted    State = "committed"
)

const (
	eventSelectKind   = "select_kind"
	eventSelectAction = "select_action"
	eventCommit       = "commit"
	eventUndoKind     = "undo_kind"
	eventUndoAction   = "undo_action"
	eventReset        = "reset"
)

var transitions = fsm.Events{
	{Name: eventSelectKind, Src: []string{string(StateIdle), string(StateKindChosen), string(StateActionChosen)}, Dst: string(StateKindChosen)},
	{Name: eventSelectAction, Src: []string{string(StateKindChosen), string(StateActionChosen)}, Dst: string(StateActionChosen)},
	{Name: eventCommit, Src: []string{string(StateKindChosen), string(StateActionChosen)}, Dst: string(StateCommitted)},
	{Name: eventUndoKind, Src: []string{string(StateCommitted)}, Dst: string(StateKindChosen)},
	{Name: eventUndoAction, Src: []string{string(StateCommitted)}, Dst: string(StateActionChosen)},
	{Name: eventReset, Src: []string{string(StateIdle), string(StateKindChosen), string(StateActionChosen), string(StateCommitted)}, Dst: string(StateIdle)},
}

// NodeRefresher refetches the node registry snapshot.
type NodeRefresher interface {
	Refresh(ctx context.Context) error
}

// Snapshot is a copy of the selection state.
type Snapshot struct {
	State       State
	Environment core.Environment
	Kind        core.Kind
	Action      string
	Locked      bool
	Values      core.Values
	Fragment    assemble.Fragment
}

// Machine is the selection state machine. It is safe for concurrent use,
// although one session is expected to drive it from a single control loop.
type Machine struct {
	mu       sync.Mutex
	fsm      *fsm.FSM
	env      core.Environment
	kind     core.Kind
	action   string
	values   core.Values
	fragment assemble.Fragment

	catalog   *catalog.Catalog
	schemas   *schema.Registry
	refresher NodeRefresher
	listOpts  []catalog.Option
}

// Option configures a Machine.
type Option func(*Machine)

// WithCatalog replaces the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(m *Machine) { m.catalog = c }
}

// WithSchemas replaces the built-in schema registry.
func WithSchemas(r *schema.Registry) Option {
	return func(m *Machine) { m.schemas = r }
}

// WithNodeRefresher sets the refresher triggered when the physical
// environment is selected.
func WithNodeRefresher(r NodeRefresher) Option {
	return func(m *Machine) { m.refresher = r }
}

// WithCapabilities enables capability-gated kinds.
func WithCapabilities(caps ...string) Option {
	return func(m *Machine) { m.listOpts = append(m.listOpts, catalog.WithCapabilities(caps...)) }
}

// New returns a machine in the idle state for env.
func New(env core.Environment, opts ...Option) *Machine {
	m := &Machine{
		fsm:     fsm.NewFSM(string(StateIdle), transitions, fsm.Callbacks{}),
		env:     env,
		catalog: catalog.Default(),
		schemas: schema.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the selection.
func (m *Machine) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() Snapshot {
	s := Snapshot{
		State:       State(m.fsm.Current()),
		Environment: m.env,
		Kind:        m.kind,
		Action:      m.action,
		Fragment:    m.fragment,
	}
	s.Locked = s.State == StateCommitted
	if m.values != nil {
		s.Values = m.values.Clone()
	}
	return s
}

// Kinds lists the kinds selectable in the current environment.
func (m *Machine) Kinds() []core.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Kinds(m.env, m.listOpts...)
}

// SelectEnvironment switches the environment and clears the kind and
// action. Selecting the physical environment refreshes the node registry;
// a refresh failure is returned after the switch has taken effect.
func (m *Machine) SelectEnvironment(ctx context.Context, env core.Environment) error {
	m.mu.Lock()
	if m.locked() {
		m.mu.Unlock()
		return core.ErrLocked
	}
	if err := m.event(ctx, eventReset); err != nil {
		m.mu.Unlock()
		return err
	}
	m.env = env
	m.clear()
	refresher := m.refresher
	m.mu.Unlock()

	if env == core.EnvPhysical && refresher != nil {
		if err := refresher.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to refresh nodes: %w", err)
		}
	}
	return nil
}

// SelectKind chooses a kind and clears the action.
func (m *Machine) SelectKind(ctx context.Context, kind core.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked() {
		return core.ErrLocked
	}
	if !m.listed(kind) {
		return fmt.Errorf("%w: %s in %s", core.ErrUnknownKind, kind, m.env)
	}
	if err := m.event(ctx, eventSelectKind); err != nil {
		return err
	}
	m.kind = kind
	m.action = ""
	m.values = nil
	return nil
}

// SelectAction chooses a sub-action of the current kind. A
// submit-immediately action also commits the selection.
func (m *Machine) SelectAction(ctx context.Context, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked() {
		return core.ErrLocked
	}
	if m.kind == "" {
		return fmt.Errorf("%w: no kind selected", core.ErrInvalidTransition)
	}
	a, ok := m.catalog.Action(m.env, m.kind, action)
	if !ok {
		return fmt.Errorf("%w: %q for %s", core.ErrUnknownAction, action, m.kind)
	}

	if a.SubmitImmediately {
		if !m.fsm.Can(eventSelectAction) {
			return m.invalid(eventSelectAction)
		}
		values := core.Values{"action": a.Key}
		fragment := assemble.NewFragment(m.kind, a.Key, true, values)
		if err := m.event(ctx, eventSelectAction); err != nil {
			return err
		}
		if err := m.event(ctx, eventCommit); err != nil {
			return err
		}
		m.action = a.Key
		m.values = values
		m.fragment = fragment
		return nil
	}

	if err := m.event(ctx, eventSelectAction); err != nil {
		return err
	}
	m.action = a.Key
	m.values = nil
	return nil
}

// Commit validates values against the current selection and locks it.
// On failure the state is left unchanged.
func (m *Machine) Commit(ctx context.Context, values core.Values) (assemble.Fragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked() {
		return assemble.Fragment{}, core.ErrLocked
	}
	entry, ok := m.catalog.LookupOK(m.env, m.kind)
	if !ok {
		return assemble.Fragment{}, fmt.Errorf("%w: no kind selected", core.ErrInvalidTransition)
	}
	if catalog.HasActions(entry) && m.action == "" {
		return assemble.Fragment{}, fmt.Errorf("%w: %s needs an action", core.ErrInvalidTransition, m.kind)
	}
	if !m.fsm.Can(eventCommit) {
		return assemble.Fragment{}, m.invalid(eventCommit)
	}

	if err := m.validate(entry, values); err != nil {
		return assemble.Fragment{}, err
	}

	var immediate bool
	if m.action != "" {
		a, _ := m.catalog.Action(m.env, m.kind, m.action)
		immediate = a.SubmitImmediately
	}
	fragment := assemble.NewFragment(m.kind, m.action, immediate, values)
	if err := m.event(ctx, eventCommit); err != nil {
		return assemble.Fragment{}, err
	}
	m.values = values.Clone()
	m.fragment = fragment
	return fragment, nil
}

func (m *Machine) validate(entry catalog.Entry, values core.Values) error {
	if ce, ok := entry.(catalog.CustomEditor); ok {
		e, found := editor.Get(ce.Editor)
		if !found {
			panic(&core.ProgrammingError{Err: fmt.Errorf("no editor registered as %s", ce.Editor)})
		}
		return e.Validate(values)
	}
	return m.schemas.Validate(m.env, m.kind, m.action, values)
}

// Undo unlocks a committed selection. The kind, action and values are
// kept so the user can edit them.
func (m *Machine) Undo(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := eventUndoKind
	if m.action != "" {
		event = eventUndoAction
	}
	if err := m.event(ctx, event); err != nil {
		return err
	}
	m.fragment = assemble.Fragment{}
	return nil
}

// Reset returns to idle in the current environment.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// reset is allowed from every state.
	_ = m.event(ctx, eventReset)
	m.clear()
}

// Defaults returns the initial editor values for the current selection.
func (m *Machine) Defaults() core.Values {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.catalog.LookupOK(m.env, m.kind)
	if !ok {
		return core.Values{}
	}
	if ce, ok := entry.(catalog.CustomEditor); ok {
		if e, found := editor.Get(ce.Editor); found {
			return e.Defaults()
		}
		return core.Values{}
	}
	fields, _ := m.catalog.FieldsFor(m.env, m.kind, m.action)
	return fields.Defaults()
}

func (m *Machine) locked() bool {
	return State(m.fsm.Current()) == StateCommitted
}

func (m *Machine) listed(kind core.Kind) bool {
	for _, k := range m.catalog.Kinds(m.env, m.listOpts...) {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *Machine) clear() {
	m.kind = ""
	m.action = ""
	m.values = nil
	m.fragment = assemble.Fragment{}
}

// event fires an fsm event. Self-transitions are not errors.
func (m *Machine) event(ctx context.Context, name string) error {
	err := m.fsm.Event(ctx, name)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return m.invalid(name)
	}
	return err
}

func (m *Machine) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", core.ErrInvalidTransition, event, m.fsm.Current())
}
