package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/domain"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Dead letter queue operations",
	}
	cmd.AddCommand(newDLQListCmd(), newDLQRetryCmd())
	return cmd
}

func newDLQListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs in the dead letter queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			dead := domain.StateDead
			jobs, err := store.List(ctx, &dead, 0)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tATTEMPTS\tDIED\tLAST ERROR")
			for _, j := range jobs {
				died := ""
				if j.CompletedAt != nil {
					died = j.CompletedAt.UTC().Format(time.RFC3339)
				}
				lastErr := ""
				if j.ErrorMessage != nil {
					lastErr = truncate(*j.ErrorMessage, 64)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", j.ID, j.Attempts, died, lastErr)
			}
			return w.Flush()
		},
	}
}

func newDLQRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Reset a dead job to pending with a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RetryDead(ctx, args[0], time.Now().UTC()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s returned to pending\n", args[0])
			return nil
		},
	}
}
