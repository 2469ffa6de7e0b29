package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uplink/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the uplink daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if warn := ctx.takeConfigWarning(); warn != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", warn)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				ConfigPath: ctx.resolvedConfigPath(),
				LogLevel:   ctx.logLevel(),
			})
		},
	}
}
