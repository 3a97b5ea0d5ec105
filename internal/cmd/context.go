package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dagu-org/faultline/internal/clients/dashboard"
	"github.com/dagu-org/faultline/internal/cmn/config"
	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/dagu-org/faultline/internal/persis/filenode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool

	logFile io.Closer
}

// NewContext loads the configuration and sets up the logger for cmd.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	v := viper.New()
	if err := bindFlags(v, cmd, flags...); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool(quietFlag.name)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath, _ := cmd.Flags().GetString(configFlag.name); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}
	cfg, err := config.NewConfigLoader(v, loaderOpts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c := &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
	}
	if err := c.setupLogger(); err != nil {
		return nil, err
	}

	for _, w := range cfg.Warnings {
		logger.Warn(c, w)
	}
	return c, nil
}

func (c *Context) setupLogger() error {
	opts := []logger.Option{
		logger.WithConsole(c.Command.ErrOrStderr()),
		logger.WithStdout(c.Command.OutOrStdout()),
	}
	if c.Config.Core.Debug || os.Getenv("DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	if c.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if c.Config.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(c.Config.Core.LogFormat))
	}
	if path := c.Config.Core.LogFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // path comes from config
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		c.logFile = f
		opts = append(opts, logger.WithWriter(f))
	}
	c.Context = logger.WithLogger(c.Context, logger.NewLogger(opts...))
	return nil
}

// Close releases the resources held by the context.
func (c *Context) Close() error {
	if c.logFile != nil {
		return c.logFile.Close()
	}
	return nil
}

// Dashboard returns a client of the configured dashboard API.
func (c *Context) Dashboard() *dashboard.Client {
	logger.Debug(c, "Using dashboard API", tag.URL(c.Config.API.BaseURL))
	return dashboard.NewClient(c.Config.API.BaseURL,
		dashboard.WithTimeout(c.Config.API.Timeout),
		dashboard.WithToken(c.Config.API.Token),
	)
}

// LocalNodeStore opens the node store under the configured nodes directory.
func (c *Context) LocalNodeStore() (*filenode.Store, error) {
	store, err := filenode.New(c, c.Config.Paths.NodesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open node store: %w", err)
	}
	return store, nil
}

// NodeBackend returns the node registry selected by the --local flag.
func (c *Context) NodeBackend() (noderegistry.Backend, error) {
	if local, _ := c.Command.Flags().GetBool(localFlag.name); local {
		logger.Debug(c, "Using local node store", tag.Dir(c.Config.Paths.NodesDir))
		return c.LocalNodeStore()
	}
	return c.Dashboard(), nil
}

// Capabilities returns the optional catalog capabilities enabled in the
// configuration.
func (c *Context) Capabilities() []string {
	var caps []string
	if c.Config.Features.DNSServerCreate {
		caps = append(caps, catalog.CapabilityDNSServer)
	}
	return caps
}

// StringParam retrieves a string flag.
func (c *Context) StringParam(name string) (string, error) {
	val, err := c.Command.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return val, nil
}

// Print writes to the command output unless quiet.
func (c *Context) Print(s string) {
	if c.Quiet {
		return
	}
	_, _ = fmt.Fprintln(c.Command.OutOrStdout(), s)
}

// NewCommand creates a new command instance with the given cobra command and run function.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		defer func() { _ = ctx.Close() }()

		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}
	return cmd
}
