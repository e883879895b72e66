package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/domain"
)

func newListCmd() *cobra.Command {
	var (
		flagState string
		flagLimit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var stateFilter *domain.JobState
			if flagState != "" {
				st := domain.JobState(flagState)
				if !st.Valid() {
					return fmt.Errorf("%w: %q", domain.ErrInvalidState, flagState)
				}
				stateFilter = &st
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(ctx, stateFilter, flagLimit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tATTEMPTS\tPRIORITY\tCREATED\tCOMMAND")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\t%s\n",
					j.ID, j.State, j.Attempts, j.MaxRetries, j.Priority,
					j.CreatedAt.UTC().Format(time.RFC3339), truncate(j.Command, 48))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&flagState, "state", "", "filter by state (pending|processing|completed|failed|dead)")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum number of jobs to show (0 = all)")

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
