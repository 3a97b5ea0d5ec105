package main

import (
	"os"

	"github.com/dagu-org/faultline/internal/cmd"
	"github.com/dagu-org/faultline/internal/cmn/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   config.AppSlug,
	Short: "Faultline assembles chaos experiments for the chaos dashboard",
	Long: `Faultline assembles chaos experiments for the chaos dashboard.

It walks an experiment through target selection, basic metadata and an
optional schedule, manages the physical nodes faults can be injected into,
and submits the result to the dashboard API.
`,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Kinds())
	rootCmd.AddCommand(cmd.Build())
	rootCmd.AddCommand(cmd.Nodes())
	rootCmd.AddCommand(cmd.Serve())
	rootCmd.AddCommand(cmd.Version())

	config.Version = version
}

var version = "0.0.0"
