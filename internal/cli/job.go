package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/domain"
)

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Describe one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			printJob(cmd, job)
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, j *domain.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:            %s\n", j.ID)
	fmt.Fprintf(out, "Command:       %s\n", j.Command)
	fmt.Fprintf(out, "State:         %s\n", j.State)
	fmt.Fprintf(out, "Attempts:      %d/%d\n", j.Attempts, j.MaxRetries)
	fmt.Fprintf(out, "Priority:      %d\n", j.Priority)
	fmt.Fprintf(out, "Timeout:       %s\n", j.ExecutionTimeout())
	fmt.Fprintf(out, "Created:       %s\n", j.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Updated:       %s\n", j.UpdatedAt.UTC().Format(time.RFC3339))
	if j.RunAt != nil {
		fmt.Fprintf(out, "Run at:        %s\n", j.RunAt.UTC().Format(time.RFC3339))
	}
	if j.NextRetryAt != nil {
		fmt.Fprintf(out, "Next retry:    %s\n", j.NextRetryAt.UTC().Format(time.RFC3339))
	}
	if j.CompletedAt != nil {
		fmt.Fprintf(out, "Completed:     %s\n", j.CompletedAt.UTC().Format(time.RFC3339))
	}
	if j.ErrorMessage != nil {
		fmt.Fprintf(out, "Last error:    %s\n", *j.ErrorMessage)
	}
}
