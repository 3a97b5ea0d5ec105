package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/service/nodeapi"
	"github.com/spf13/cobra"
)

func Serve() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "serve [flags]",
			Short: "Serve the node registry API from the local node store",
			Long: `Serve the node registry API backed by the local node store. The API is
the one the dashboard exposes, so the other commands can point --api-url at it.

Flags:
  --host string    Host address to bind the server to (default: 127.0.0.1)
  --port int       Port number to listen on (default: 2334)

Example:
  faultline serve --host=0.0.0.0 --port=2334
`,
			Args: cobra.NoArgs,
		}, serveFlags, runServe,
	)
}

var serveFlags = []commandLineFlag{hostFlag, portFlag}

func runServe(ctx *Context, _ []string) error {
	logger.Info(ctx, "Server initialization", tag.Host(ctx.Config.Server.Host), tag.Port(ctx.Config.Server.Port))

	store, err := ctx.LocalNodeStore()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := nodeapi.New(ctx.Config, store).Serve(sigCtx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
