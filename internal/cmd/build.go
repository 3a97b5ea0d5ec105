package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dagu-org/faultline/internal/builder"
	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/basic"
	"github.com/dagu-org/faultline/internal/core/schedule"
	"github.com/dagu-org/faultline/internal/core/selection"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

func Build() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "build [flags]",
			Short: "Assemble an experiment from a plan file",
			Long: `Walk an experiment plan through the builder steps (target, basic,
schedule) and print the assembled experiment. With --submit the experiment is
sent to the dashboard API and the plan's nodes are registered first.

Plan file:
  environment: cluster            # or physical
  mode: one-shot                  # or recurring
  target:
    kind: NetworkFault
    action: delay
    values:
      latency: 10ms
  basic:
    name: network-delay
    scope:
      namespaces: [default]
    scheduler:
      duration: 30s
  schedule:                       # recurring only
    schedule: "@every 1h"
  nodes:                          # physical only
    - name: node-1
      address: 10.0.0.1:31767

Example:
  faultline build -f plan.yaml --submit
`,
			Args: cobra.NoArgs,
		}, buildFlags, runBuild,
	)
}

var buildFlags = []commandLineFlag{planFlag, submitFlag, apiURLFlag}

type plan struct {
	Environment string         `yaml:"environment"`
	Mode        string         `yaml:"mode"`
	Target      planTarget     `yaml:"target"`
	Basic       map[string]any `yaml:"basic"`
	Schedule    map[string]any `yaml:"schedule"`
	Overrides   map[string]any `yaml:"overrides"`
	Nodes       []planNode     `yaml:"nodes"`
}

type planTarget struct {
	Kind   string         `yaml:"kind"`
	Action string         `yaml:"action"`
	Values map[string]any `yaml:"values"`
}

type planNode struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

var errNoKind = errors.New("plan has no target kind")

func loadPlan(path string) (*plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided plan path
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var p plan
	if err := yaml.UnmarshalWithOptions(data, &p, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	if strings.TrimSpace(p.Target.Kind) == "" {
		return nil, errNoKind
	}
	if p.Environment == "" {
		p.Environment = string(core.EnvCluster)
	}
	return &p, nil
}

func runBuild(ctx *Context, _ []string) error {
	path, err := ctx.StringParam(planFlag.name)
	if err != nil {
		return err
	}
	submit, err := ctx.Command.Flags().GetBool(submitFlag.name)
	if err != nil {
		return err
	}
	p, err := loadPlan(path)
	if err != nil {
		return err
	}

	env, err := core.ParseEnvironment(p.Environment)
	if err != nil {
		return err
	}
	mode, err := builder.ParseMode(p.Mode)
	if err != nil {
		return err
	}

	client := ctx.Dashboard()
	session, err := builder.New(env, mode, client,
		builder.WithNodes(noderegistry.NewAdapter(client)),
		builder.WithNotifier(builder.LogNotifier{}),
		builder.WithSelectionOptions(selection.WithCapabilities(ctx.Capabilities()...)),
	)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := applyPlan(ctx, session, p, submit); err != nil {
		return err
	}

	if submit {
		return session.Submit(ctx)
	}
	body, err := session.Body()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode experiment: %w", err)
	}
	ctx.Print(string(data))
	if mode == builder.ModeRecurring {
		previewRuns(ctx, session.Status().Schedule)
	}
	return nil
}

const previewCount = 3

// previewRuns logs the next activations of a committed schedule.
func previewRuns(ctx context.Context, p schedule.Params) {
	times, err := p.Next(time.Now(), previewCount)
	if err != nil {
		logger.Warn(ctx, "Failed to compute next runs", tag.Schedule(p.Schedule), tag.Error(err))
		return
	}
	for _, t := range times {
		logger.Info(ctx, "Next run", tag.Schedule(p.Schedule), tag.NextRun(t))
	}
}

// applyPlan commits every step of the session from p. Nodes are registered
// only when register is set; their addresses are targeted either way.
func applyPlan(ctx context.Context, s *builder.Session, p *plan, register bool) error {
	env := s.Target().State().Environment
	if len(p.Nodes) > 0 && env != core.EnvPhysical {
		return fmt.Errorf("%w: nodes are only used in the %s environment", core.ErrInvalidValue, core.EnvPhysical)
	}

	values, err := basic.Decode(p.Basic)
	if err != nil {
		return err
	}

	if register && len(p.Nodes) > 0 {
		if err := s.RefreshNodes(ctx); err != nil {
			return err
		}
	}
	for _, n := range p.Nodes {
		if register {
			s.SetNodeDraft(n.Name, n.Address)
			if err := s.AddNode(ctx); err != nil {
				return fmt.Errorf("failed to add node %s: %w", n.Name, err)
			}
		}
		if addr := strings.TrimSpace(n.Address); !slices.Contains(values.Scope.Addresses, addr) {
			values.Scope.Addresses = append(values.Scope.Addresses, addr)
		}
	}

	if err := s.SelectKind(ctx, core.Kind(p.Target.Kind)); err != nil {
		return err
	}
	if p.Target.Action != "" {
		if err := s.SelectAction(ctx, p.Target.Action); err != nil {
			return err
		}
	}
	// submit-immediately actions are committed on selection
	if !s.Target().State().Locked {
		if _, err := s.CommitTarget(ctx, core.Values(p.Target.Values)); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}

	if err := s.CommitBasic(ctx, values); err != nil {
		return fmt.Errorf("basic: %w", err)
	}

	switch s.Mode() {
	case builder.ModeRecurring:
		params, err := schedule.Decode(p.Schedule)
		if err != nil {
			return err
		}
		if err := s.CommitSchedule(ctx, params); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		if len(p.Overrides) > 0 {
			return fmt.Errorf("%w: overrides are only used in %s mode", core.ErrInvalidValue, builder.ModeOneShot)
		}
	case builder.ModeOneShot:
		if len(p.Schedule) > 0 {
			return fmt.Errorf("%w: schedule is only used in %s mode", core.ErrInvalidValue, builder.ModeRecurring)
		}
		if len(p.Overrides) > 0 {
			if err := s.SetOverrides(p.Overrides); err != nil {
				return err
			}
		}
	}

	logger.Debug(ctx, "Plan applied", tag.Kind(p.Target.Kind), tag.Action(p.Target.Action), tag.Mode(string(s.Mode())))
	return nil
}
