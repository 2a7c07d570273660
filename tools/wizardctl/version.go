package main

import (
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/WizardKit/runtime/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printf(cmd.OutOrStdout(), "%s\n", version.Info("wizardctl"))
		},
	}
}
