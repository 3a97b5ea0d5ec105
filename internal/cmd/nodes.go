package cmd

import (
	"errors"
	"fmt"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Nodes() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Manage the physical nodes that can receive faults",
		Long: `Manage the registry of physical nodes. Nodes are stored by the dashboard
API unless --local is given, in which case the local node store is used.
`,
	}
	cmd.AddCommand(nodesList(), nodesAdd(), nodesRemove())
	return cmd
}

var nodesFlags = []commandLineFlag{localFlag, apiURLFlag}

func nodesList() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "list [flags]",
			Short: "List registered nodes",
			Args:  cobra.NoArgs,
		}, nodesFlags, runNodesList,
	)
}

func nodesAdd() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "add [flags] <name> <address>",
			Short: "Register a node",
			Long: `Register a physical node under a unique name. The address is where the
node's fault agent listens.

Example:
  faultline nodes add node-1 10.0.0.1:31767
`,
			Args: cobra.ExactArgs(2),
		}, nodesFlags, runNodesAdd,
	)
}

func nodesRemove() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "remove [flags] <name>",
			Short: "Remove a node",
			Args:  cobra.ExactArgs(1),
		}, nodesFlags, runNodesRemove,
	)
}

func newNodeAdapter(ctx *Context) (*noderegistry.Adapter, error) {
	backend, err := ctx.NodeBackend()
	if err != nil {
		return nil, err
	}
	return noderegistry.NewAdapter(backend), nil
}

var nodesHeader = table.Row{"Name", "Kind", "Address"}

func printNodes(ctx *Context, nodes []noderegistry.Node) {
	t := table.NewWriter()
	t.AppendHeader(nodesHeader)
	for _, n := range nodes {
		addr, err := n.Address()
		if err != nil {
			addr = fmt.Sprintf("<invalid: %s>", n.Config)
		}
		t.AppendRow(table.Row{n.Name, n.Kind, addr})
	}
	ctx.Print(t.Render())
}

func runNodesList(ctx *Context, _ []string) error {
	adapter, err := newNodeAdapter(ctx)
	if err != nil {
		return err
	}
	if err := adapter.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	printNodes(ctx, adapter.Nodes())
	return nil
}

func runNodesAdd(ctx *Context, args []string) error {
	adapter, err := newNodeAdapter(ctx)
	if err != nil {
		return err
	}
	// the adapter rejects names it already knows about
	if err := adapter.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}
	err = adapter.Add(ctx, args[0], args[1])
	if err != nil && !errors.Is(err, noderegistry.ErrRefresh) {
		return err
	}
	logger.Info(ctx, "Node added", tag.Node(args[0]), tag.Address(args[1]))
	printUpdated(ctx, adapter, err)
	return nil
}

func runNodesRemove(ctx *Context, args []string) error {
	adapter, err := newNodeAdapter(ctx)
	if err != nil {
		return err
	}
	err = adapter.Remove(ctx, args[0])
	if err != nil && !errors.Is(err, noderegistry.ErrRefresh) {
		return err
	}
	logger.Info(ctx, "Node removed", tag.Node(args[0]))
	printUpdated(ctx, adapter, err)
	return nil
}

// printUpdated prints the snapshot after a mutation. A snapshot that could
// not be reloaded is not printed.
func printUpdated(ctx *Context, adapter *noderegistry.Adapter, refreshErr error) {
	if refreshErr != nil {
		logger.Warn(ctx, "Failed to reload nodes", tag.Error(refreshErr))
		return
	}
	printNodes(ctx, adapter.Nodes())
}
