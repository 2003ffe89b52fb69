package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of portpanel",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version := cmd.Root().Version
			if version == "" {
				version = "dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "portpanel version %s\n", version)
		},
	}
}
