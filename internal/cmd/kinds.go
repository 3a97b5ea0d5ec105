package cmd

import (
	"strings"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/core/catalog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Kinds() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "kinds [flags]",
			Short: "List the fault kinds available in an environment",
			Long: `List the fault kinds that can be injected in the cluster or physical
environment, with their actions and how each is edited.

Example:
  faultline kinds --env=physical
`,
			Args: cobra.NoArgs,
		}, kindsFlags, runKinds,
	)
}

var kindsFlags = []commandLineFlag{envFlag}

var kindsHeader = table.Row{"Kind", "Editor", "Actions"}

func runKinds(ctx *Context, _ []string) error {
	envName, err := ctx.StringParam(envFlag.name)
	if err != nil {
		return err
	}
	env, err := core.ParseEnvironment(envName)
	if err != nil {
		return err
	}

	cat := catalog.Default()
	t := table.NewWriter()
	t.AppendHeader(kindsHeader)
	for _, kind := range cat.Kinds(env, catalog.WithCapabilities(ctx.Capabilities()...)) {
		t.AppendRow(kindRow(kind, cat.Lookup(env, kind)))
	}
	ctx.Print(t.Render())
	return nil
}

func kindRow(kind core.Kind, entry catalog.Entry) table.Row {
	return catalog.Match(entry,
		func(actions catalog.ActionList) table.Row {
			keys := make([]string, len(actions))
			for i, a := range actions {
				keys[i] = a.Key
				if a.SubmitImmediately {
					keys[i] += "*"
				}
			}
			return table.Row{kind, "actions", strings.Join(keys, ", ")}
		},
		func(catalog.FieldSet) table.Row {
			return table.Row{kind, "fields", ""}
		},
		func(ce catalog.CustomEditor) table.Row {
			return table.Row{kind, ce.Editor, ""}
		},
	)
}
