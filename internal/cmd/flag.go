package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
	// bindViper is the config key the flag overrides, if any.
	bindViper string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/faultline/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress output",
		isBool:    true,
	}
	hostFlag = commandLineFlag{
		name:      "host",
		shorthand: "s",
		usage:     "server host (default is 127.0.0.1)",
		bindViper: "server.host",
	}
	portFlag = commandLineFlag{
		name:      "port",
		shorthand: "p",
		usage:     "server port (default is 2334)",
		bindViper: "server.port",
	}
	apiURLFlag = commandLineFlag{
		name:      "api-url",
		usage:     "base URL of the dashboard API",
		bindViper: "api.base_url",
	}
	envFlag = commandLineFlag{
		name:         "env",
		shorthand:    "e",
		defaultValue: "cluster",
		usage:        "target environment: cluster or physical",
	}
	localFlag = commandLineFlag{
		name:   "local",
		usage:  "use the local node store instead of the dashboard API",
		isBool: true,
	}
	planFlag = commandLineFlag{
		name:      "file",
		shorthand: "f",
		usage:     "experiment plan file (YAML or JSON)",
		required:  true,
	}
	submitFlag = commandLineFlag{
		name:   "submit",
		usage:  "submit the experiment instead of printing it",
		isBool: true,
	}
)

var baseFlags = []commandLineFlag{configFlag, quietFlag}

func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append(append([]commandLineFlag{}, baseFlags...), additionalFlags...)
	for _, flag := range flags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, flag.defaultValue == "true", flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

// bindFlags binds config-backed flags to v so that flags set on the command
// line win over the config file and the environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command, flags ...commandLineFlag) error {
	for _, flag := range flags {
		if flag.bindViper == "" {
			continue
		}
		if err := v.BindPFlag(flag.bindViper, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
