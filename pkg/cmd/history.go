package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent activity from the journal",
		Long: `Print the newest journal entries, oldest first.

Every line the panel writes to its output log (relay starts and stops,
service actions, rule changes) is also stored in the journal database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("-n must be positive, got %d", limit)
			}
			j, closeFn, err := openJournal(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := j.Recent(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-5s  %-7s  %s\n",
					e.Time.Local().Format(time.DateTime), e.Level, e.Source, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", defaultHistoryLimit, "number of entries to show")
	return cmd
}
