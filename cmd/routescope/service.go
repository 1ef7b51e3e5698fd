package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"routescope/internal/adapter"
	"routescope/internal/daemon"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage routescope as a " + service.Platform() + " service",
}

func init() {
	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		serviceCmd.AddCommand(serviceActionCmd(action))
	}
}

func serviceActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the routescope service", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logr.FromContextOrDiscard(cmd.Context())
			registry := adapter.NewRegistry(nil, log)
			program := daemon.NewProgram(cmd.Context(), registry, daemon.WithLogger(log))

			s, err := daemon.New(program, serviceArgs(cmd.Root().PersistentFlags()))
			if err != nil {
				return err
			}
			if err := daemon.Control(s, action); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service %s: %s done\n", daemon.ServiceName, action)
			return nil
		},
	}
}

// serviceArgs returns the command line the service manager will launch:
// service mode plus every root flag set explicitly on this invocation.
func serviceArgs(flags *pflag.FlagSet) []string {
	args := []string{"--service"}
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "service" {
			return
		}
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}
