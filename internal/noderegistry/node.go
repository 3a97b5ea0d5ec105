// Package noderegistry keeps the local snapshot of the physical node
// registry and mediates every change to it.
package noderegistry

import (
	"context"
	"encoding/base64"
	"fmt"
)

// KindPhysical is the kind of every node registered for physical experiments.
const KindPhysical = "physical"

// Node is a physical host that can receive faults.
type Node struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	// Config is the base64 encoded address of the node's agent.
	Config string `json:"config"`
}

// Address decodes the node's address.
func (n Node) Address() (string, error) {
	return DecodeAddress(n.Config)
}

// Backend is the store of record for nodes.
type Backend interface {
	// Add registers a node. It returns a *core.ConflictError when the
	// name is taken.
	Add(ctx context.Context, node Node) error
	// List returns every node, ordered by name.
	List(ctx context.Context) ([]Node, error)
	// Delete removes a node. It returns a *core.NotFoundError when no
	// node has the name.
	Delete(ctx context.Context, name string) error
}

// EncodeAddress encodes a raw address the way the registry stores it.
func EncodeAddress(address string) string {
	return base64.StdEncoding.EncodeToString([]byte(address))
}

// DecodeAddress reverses EncodeAddress.
func DecodeAddress(config string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(config)
	if err != nil {
		return "", fmt.Errorf("invalid node config: %w", err)
	}
	return string(b), nil
}
