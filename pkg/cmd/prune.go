package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultPruneAge = 30 * 24 * time.Hour

func newPruneCmd(opts *options) *cobra.Command {
	var (
		olderThan time.Duration
		acceptAll bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old entries from the journal",
		Long: `Remove journal entries recorded before a cutoff.

The cutoff is now minus --older-than. You are asked to confirm unless -y
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			j, closeFn, err := openJournal(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			cutoff := time.Now().Add(-olderThan)
			if !acceptAll {
				fmt.Fprintf(out, "Delete journal entries older than %s? [y/N]: ", cutoff.Format(time.DateTime))
				resp, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				resp = strings.TrimSpace(strings.ToLower(resp))
				if resp != "y" && resp != "yes" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			n, err := j.Prune(cutoff)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(out, "✅ No journal entries to remove.")
				return nil
			}
			fmt.Fprintf(out, "🧹 Removed %d journal entr%s.\n", n, plural(n, "y", "ies"))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", defaultPruneAge, "remove entries older than this")
	cmd.Flags().BoolVarP(&acceptAll, "yes", "y", false, "delete without prompting")
	return cmd
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
