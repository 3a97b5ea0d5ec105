// Package builder orchestrates one experiment builder session: target
// selection, the basic step, the schedule step of recurring experiments and
// the final submission.
package builder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/assemble"
	"github.com/dagu-org/faultline/internal/core/basic"
	"github.com/dagu-org/faultline/internal/core/schedule"
	"github.com/dagu-org/faultline/internal/core/selection"
	"github.com/dagu-org/faultline/internal/noderegistry"
)

// Mode selects the shape of the submitted experiment.
type Mode string

const (
	ModeOneShot   Mode = "one-shot"
	ModeRecurring Mode = "recurring"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOneShot, ModeRecurring:
		return m, nil
	case "":
		return ModeOneShot, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", core.ErrInvalidValue, s)
	}
}

// Step names a step of the session.
type Step string

const (
	StepTarget   Step = "target"
	StepBasic    Step = "basic"
	StepSchedule Step = "schedule"
)

var errNoRegistry = errors.New("no node registry configured")

// Submitter is the submission boundary.
type Submitter interface {
	SubmitExperiment(ctx context.Context, body map[string]any) error
	SubmitSchedule(ctx context.Context, body map[string]any) error
}

// Nodes is the node registry snapshot the session reads and mutates.
// *noderegistry.Adapter implements it.
type Nodes interface {
	Refresh(ctx context.Context) error
	Nodes() []noderegistry.Node
	Addresses() []string
	Subscribe(fn func([]noderegistry.Node)) func()
	Add(ctx context.Context, name, address string) error
	Remove(ctx context.Context, name string) error
}

// NodeDraft is the node being entered in the basic step.
type NodeDraft struct {
	Name    string
	Address string
}

// Status is a copy of the session state.
type Status struct {
	Mode            Mode
	Target          selection.Snapshot
	Basic           basic.Values
	BasicLocked     bool
	Schedule        schedule.Params
	ScheduleLocked  bool
	Overrides       map[string]any
	NodeDraft       NodeDraft
	NodeManagerOpen bool
	Submitting      bool
}

// Missing returns the steps that still have to be committed.
func (s Status) Missing() []Step {
	var missing []Step
	if !s.Target.Locked {
		missing = append(missing, StepTarget)
	}
	if !s.BasicLocked {
		missing = append(missing, StepBasic)
	}
	if s.Mode == ModeRecurring && !s.ScheduleLocked {
		missing = append(missing, StepSchedule)
	}
	return missing
}

// Session is one experiment builder session. Step buffers survive undo;
// only a successful submission or Reset clears them.
type Session struct {
	mode      Mode
	target    *selection.Machine
	nodes     Nodes
	submitter Submitter
	notifier  Notifier

	mu             sync.Mutex
	basic          basic.Values
	basicLocked    bool
	schedule       schedule.Params
	scheduleLocked bool
	overrides      map[string]any
	draft          NodeDraft
	managerOpen    bool
	unsubscribe    func()

	// single-flight flags, one per control
	submitting   atomic.Bool
	addingNode   atomic.Bool
	removingNode atomic.Bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	nodes     Nodes
	notifier  Notifier
	selection []selection.Option
}

// WithNodes injects the node registry snapshot. It is also the refresher
// triggered when the physical environment is selected.
func WithNodes(n Nodes) Option {
	return func(o *sessionOptions) { o.nodes = n }
}

// WithNotifier sets the user-visible notification channel.
func WithNotifier(n Notifier) Option {
	return func(o *sessionOptions) { o.notifier = n }
}

// WithSelectionOptions passes options to the selection machine.
func WithSelectionOptions(opts ...selection.Option) Option {
	return func(o *sessionOptions) { o.selection = append(o.selection, opts...) }
}

// New creates a session in env. It does not fetch nodes; selecting the
// physical environment does.
func New(env core.Environment, mode Mode, submitter Submitter, opts ...Option) (*Session, error) {
	if mode != ModeOneShot && mode != ModeRecurring {
		return nil, fmt.Errorf("%w: unknown mode %q", core.ErrInvalidValue, mode)
	}
	if submitter == nil {
		return nil, errors.New("builder: submitter is required")
	}

	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = discardNotifier{}
	}
	var selOpts []selection.Option
	if o.nodes != nil {
		selOpts = append(selOpts, selection.WithNodeRefresher(o.nodes))
	}
	selOpts = append(selOpts, o.selection...)

	s := &Session{
		mode:      mode,
		target:    selection.New(env, selOpts...),
		nodes:     o.nodes,
		submitter: submitter,
		notifier:  o.notifier,
		basic:     basic.Defaults(),
		schedule:  schedule.Defaults(),
	}
	if s.nodes != nil {
		s.unsubscribe = s.nodes.Subscribe(s.nodesChanged)
	}
	return s, nil
}

// Close detaches the session from the node registry snapshot.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Status returns a copy of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Mode:            s.mode,
		Target:          s.target.State(),
		Basic:           s.basic.Clone(),
		BasicLocked:     s.basicLocked,
		Schedule:        s.schedule,
		ScheduleLocked:  s.scheduleLocked,
		Overrides:       maps.Clone(s.overrides),
		NodeDraft:       s.draft,
		NodeManagerOpen: s.managerOpen,
		Submitting:      s.submitting.Load(),
	}
}

// Target exposes the selection machine of the target step.
func (s *Session) Target() *selection.Machine {
	return s.target
}

// SelectEnvironment switches the environment of the target step.
func (s *Session) SelectEnvironment(ctx context.Context, env core.Environment) error {
	if err := s.target.SelectEnvironment(ctx, env); err != nil {
		if core.IsUserFacing(err) && !errors.Is(err, core.ErrLocked) {
			s.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Failed to load nodes", Err: err})
		}
		return err
	}
	logger.Debug(ctx, "Environment selected", tag.Env(string(env)))
	return nil
}

// SelectKind chooses the kind of the target step.
func (s *Session) SelectKind(ctx context.Context, kind core.Kind) error {
	return s.target.SelectKind(ctx, kind)
}

// SelectAction chooses the action of the target step.
func (s *Session) SelectAction(ctx context.Context, action string) error {
	return s.target.SelectAction(ctx, action)
}

// CommitTarget validates values and locks the target step.
func (s *Session) CommitTarget(ctx context.Context, values core.Values) (assemble.Fragment, error) {
	f, err := s.target.Commit(ctx, values)
	if err != nil {
		return assemble.Fragment{}, err
	}
	logger.Debug(ctx, "Target committed", tag.Kind(string(f.Kind)), tag.Step(string(StepTarget)))
	return f, nil
}

// UndoTarget unlocks the target step.
func (s *Session) UndoTarget(ctx context.Context) error {
	return s.target.Undo(ctx)
}

// CommitBasic stores values and locks the basic step when they validate.
// Invalid values are kept so they can be corrected.
func (s *Session) CommitBasic(ctx context.Context, values basic.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.basicLocked {
		return fmt.Errorf("%w: %s", core.ErrLocked, StepBasic)
	}
	s.basic = values.Clone()
	if err := s.basic.Validate(s.target.State().Environment); err != nil {
		return err
	}
	s.basicLocked = true
	logger.Debug(ctx, "Basic step committed", tag.Name(values.Name))
	return nil
}

// UndoBasic unlocks the basic step. The values are kept.
func (s *Session) UndoBasic(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.basicLocked {
		return fmt.Errorf("%w: %s is not committed", core.ErrInvalidTransition, StepBasic)
	}
	s.basicLocked = false
	return nil
}

// CommitSchedule stores params and locks the schedule step when they
// validate. Only recurring sessions have a schedule step.
func (s *Session) CommitSchedule(ctx context.Context, p schedule.Params) error {
	if s.mode != ModeRecurring {
		return fmt.Errorf("%w: %s step in %s mode", core.ErrInvalidTransition, StepSchedule, s.mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduleLocked {
		return fmt.Errorf("%w: %s", core.ErrLocked, StepSchedule)
	}
	s.schedule = p
	if err := p.Validate(); err != nil {
		return err
	}
	s.scheduleLocked = true
	logger.Debug(ctx, "Schedule step committed", tag.Schedule(p.Schedule))
	return nil
}

// UndoSchedule unlocks the schedule step. The params are kept.
func (s *Session) UndoSchedule(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scheduleLocked {
		return fmt.Errorf("%w: %s is not committed", core.ErrInvalidTransition, StepSchedule)
	}
	s.scheduleLocked = false
	return nil
}

// SetOverrides sets top-level keys applied last to a one-shot body.
func (s *Session) SetOverrides(overrides map[string]any) error {
	if s.mode != ModeOneShot {
		return fmt.Errorf("%w: overrides in %s mode", core.ErrInvalidTransition, s.mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = maps.Clone(overrides)
	return nil
}

// Body assembles the submission body from the committed steps.
func (s *Session) Body() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body()
}

func (s *Session) body() (map[string]any, error) {
	target := s.target.State()
	status := Status{
		Mode:           s.mode,
		Target:         target,
		BasicLocked:    s.basicLocked,
		ScheduleLocked: s.scheduleLocked,
	}
	if missing := status.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, step := range missing {
			names[i] = string(step)
		}
		return nil, fmt.Errorf("%w: %s not committed", core.ErrIncomplete, strings.Join(names, ", "))
	}

	// the environment may have changed since the basic step was committed
	if err := s.basic.Validate(target.Environment); err != nil {
		return nil, err
	}

	meta := s.basic.Output(target.Environment)
	if s.mode == ModeRecurring {
		return assemble.Recurring(meta, target.Fragment, s.schedule), nil
	}
	return assemble.OneShot(meta, target.Fragment, s.overrides), nil
}

// Submit sends the assembled experiment. Concurrent calls fail with
// core.ErrInFlight. On success the whole session is reset; on failure it is
// left untouched so the submission can be retried.
func (s *Session) Submit(ctx context.Context) error {
	if !s.submitting.CompareAndSwap(false, true) {
		return core.ErrInFlight
	}
	defer s.submitting.Store(false)

	body, err := s.Body()
	if err != nil {
		return err
	}
	name, _ := body["name"].(string)
	ctx = logger.WithValues(ctx, tag.Name(name), tag.Mode(string(s.mode)))

	if s.mode == ModeRecurring {
		err = s.submitter.SubmitSchedule(ctx, body)
	} else {
		err = s.submitter.SubmitExperiment(ctx, body)
	}
	if err != nil {
		s.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Failed to create experiment", Err: err})
		return err
	}

	s.Reset(ctx)
	logger.Info(ctx, "Experiment created")
	s.notifier.Notify(ctx, Notification{Level: LevelSuccess, Message: "Experiment created"})
	return nil
}

// Reset discards every step buffer and returns the target step to idle in
// the current environment.
func (s *Session) Reset(ctx context.Context) {
	s.target.Reset(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.basic = basic.Defaults()
	s.basicLocked = false
	s.schedule = schedule.Defaults()
	s.scheduleLocked = false
	s.overrides = nil
	s.draft = NodeDraft{}
	s.managerOpen = false
}
