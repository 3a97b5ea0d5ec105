package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/noderegistry"
)

// SetNodeDraft sets the name and address of the node to add.
func (s *Session) SetNodeDraft(name, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = NodeDraft{Name: name, Address: address}
}

// Nodes returns the last node registry snapshot.
func (s *Session) Nodes() []noderegistry.Node {
	if s.nodes == nil {
		return nil
	}
	return s.nodes.Nodes()
}

// RefreshNodes refetches the node registry.
func (s *Session) RefreshNodes(ctx context.Context) error {
	if s.nodes == nil {
		return errNoRegistry
	}
	if err := s.nodes.Refresh(ctx); err != nil {
		s.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Failed to load nodes", Err: err})
		return err
	}
	return nil
}

// AddNode registers the draft node. On success its address is added to the
// targeted addresses and the draft is cleared. A node that was registered
// but could not be reloaded counts as added; a warning reports the stale
// snapshot.
func (s *Session) AddNode(ctx context.Context) error {
	if s.nodes == nil {
		return errNoRegistry
	}
	if !s.addingNode.CompareAndSwap(false, true) {
		return core.ErrInFlight
	}
	defer s.addingNode.Store(false)

	s.mu.Lock()
	if s.basicLocked {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrLocked, StepBasic)
	}
	draft := s.draft
	s.mu.Unlock()

	err := s.nodes.Add(ctx, draft.Name, draft.Address)
	stale := errors.Is(err, noderegistry.ErrRefresh)
	if err != nil && !stale {
		if core.IsUserFacing(err) {
			s.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Failed to add node", Err: err})
		}
		return err
	}

	address := strings.TrimSpace(draft.Address)
	s.mu.Lock()
	if !slices.Contains(s.basic.Scope.Addresses, address) {
		s.basic.Scope.Addresses = append(s.basic.Scope.Addresses, address)
	}
	s.draft = NodeDraft{}
	s.mu.Unlock()

	logger.Info(ctx, "Node added", tag.Node(strings.TrimSpace(draft.Name)), tag.Address(address))
	s.notifier.Notify(ctx, Notification{Level: LevelSuccess, Message: "Node added"})
	if stale {
		s.notifier.Notify(ctx, Notification{Level: LevelWarning, Message: "Failed to reload nodes", Err: err})
	}
	return nil
}

// RemoveNode deletes the named node. Its address is dropped from the
// targeted addresses unless another node still has it, and the node manager
// closes once the registry is empty. As with AddNode, a failed reload after
// the delete only produces a warning.
func (s *Session) RemoveNode(ctx context.Context, name string) error {
	if s.nodes == nil {
		return errNoRegistry
	}
	if !s.removingNode.CompareAndSwap(false, true) {
		return core.ErrInFlight
	}
	defer s.removingNode.Store(false)

	s.mu.Lock()
	locked := s.basicLocked
	s.mu.Unlock()
	if locked {
		return fmt.Errorf("%w: %s", core.ErrLocked, StepBasic)
	}

	var address string
	for _, n := range s.nodes.Nodes() {
		if n.Name == name {
			address, _ = n.Address()
			break
		}
	}

	err := s.nodes.Remove(ctx, name)
	stale := errors.Is(err, noderegistry.ErrRefresh)
	if err != nil && !stale {
		s.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Failed to delete node", Err: err})
		return err
	}

	// a stale snapshot may still list the node; its address goes either way
	remaining := s.nodes.Addresses()
	if stale {
		others := slices.DeleteFunc(s.nodes.Nodes(), func(n noderegistry.Node) bool { return n.Name == name })
		remaining = nodeAddresses(others)
		s.nodesChanged(others)
	}
	s.mu.Lock()
	if address != "" && !slices.Contains(remaining, address) {
		s.basic.Scope.Addresses = slices.DeleteFunc(s.basic.Scope.Addresses, func(a string) bool { return a == address })
	}
	s.mu.Unlock()

	logger.Info(ctx, "Node deleted", tag.Node(name))
	s.notifier.Notify(ctx, Notification{Level: LevelSuccess, Message: "Node deleted"})
	if stale {
		s.notifier.Notify(ctx, Notification{Level: LevelWarning, Message: "Failed to reload nodes", Err: err})
	}
	return nil
}

// OpenNodeManager opens the node manager view. It reports false when there
// are no nodes to manage.
func (s *Session) OpenNodeManager() bool {
	if len(s.Nodes()) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerOpen = true
	return true
}

// CloseNodeManager closes the node manager view.
func (s *Session) CloseNodeManager() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerOpen = false
}

// NodeManagerOpen reports whether the node manager view is open.
func (s *Session) NodeManagerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.managerOpen
}

// nodesChanged closes the manager whenever a refresh leaves the registry
// empty.
func (s *Session) nodesChanged(nodes []noderegistry.Node) {
	if len(nodes) > 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerOpen = false
}

func nodeAddresses(nodes []noderegistry.Node) []string {
	var out []string
	for _, n := range nodes {
		if a, err := n.Address(); err == nil {
			out = append(out, a)
		}
	}
	return out
}
