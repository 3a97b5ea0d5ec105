package noderegistry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dagu-org/faultline/internal/core"
)

// ErrRefresh reports that a mutation reached the backend but the snapshot
// could not be reloaded afterwards.
var ErrRefresh = errors.New("failed to refresh nodes after update")

// Adapter wraps a Backend with the snapshot every view reads from. Each
// successful mutation is followed by a fresh List so that all observers see
// the same post-mutation state; the snapshot is never patched locally.
type Adapter struct {
	backend Backend

	mu        sync.RWMutex
	nodes     []Node
	observers map[int]func([]Node)
	nextID    int
}

// NewAdapter returns an adapter with an empty snapshot.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{
		backend:   backend,
		observers: make(map[int]func([]Node)),
	}
}

// Refresh replaces the snapshot with a fresh listing. On failure the
// snapshot is left as it was.
func (a *Adapter) Refresh(ctx context.Context) error {
	nodes, err := a.backend.List(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.nodes = slices.Clone(nodes)
	observers := make([]func([]Node), 0, len(a.observers))
	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.mu.Unlock()

	for _, fn := range observers {
		fn(slices.Clone(nodes))
	}
	return nil
}

// Nodes returns the last snapshot.
func (a *Adapter) Nodes() []Node {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.nodes)
}

// Addresses returns the decoded address of every node in the snapshot.
// Nodes with an undecodable config are skipped.
func (a *Adapter) Addresses() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.nodes))
	for _, n := range a.nodes {
		if addr, err := n.Address(); err == nil {
			out = append(out, addr)
		}
	}
	return out
}

// Subscribe registers fn to be called with the snapshot after every
// refresh. The returned function removes the subscription.
func (a *Adapter) Subscribe(fn func([]Node)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.observers[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.observers, id)
	}
}

// Add registers a node under name with the given raw address. Names already
// present in the snapshot are rejected without calling the backend. When the
// node was stored but the snapshot could not be reloaded, the error wraps
// ErrRefresh.
func (a *Adapter) Add(ctx context.Context, name, address string) error {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)

	var errs core.ValidationErrors
	if name == "" {
		errs.Add("name", nil, core.ErrRequired)
	}
	if address == "" {
		errs.Add("address", nil, core.ErrRequired)
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	if a.has(name) {
		return &core.ConflictError{Resource: "node", Name: name}
	}

	err := a.backend.Add(ctx, Node{Name: name, Kind: KindPhysical, Config: EncodeAddress(address)})
	if err != nil {
		var conflict *core.ConflictError
		if errors.As(err, &conflict) {
			return conflict
		}
		return err
	}
	return a.refreshAfterUpdate(ctx)
}

// Remove deletes the node with the given name. When the node has already
// vanished the snapshot is refreshed to reconcile and the
// *core.NotFoundError is returned.
func (a *Adapter) Remove(ctx context.Context, name string) error {
	err := a.backend.Delete(ctx, name)
	if err != nil {
		var notFound *core.NotFoundError
		if errors.As(err, &notFound) {
			if refreshErr := a.Refresh(ctx); refreshErr != nil {
				return errors.Join(err, refreshErr)
			}
		}
		return err
	}
	return a.refreshAfterUpdate(ctx)
}

func (a *Adapter) refreshAfterUpdate(ctx context.Context) error {
	if err := a.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	return nil
}

func (a *Adapter) has(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.ContainsFunc(a.nodes, func(n Node) bool { return n.Name == name })
}
