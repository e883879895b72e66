package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/config"
	"github.com/queuectl/queuectl/internal/domain"
)

func newEnqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <payload>",
		Short: "Submit a job from a JSON payload",
		Long: `Submit a job from a JSON payload. Pass "-" to read the payload from stdin.

Recognized fields: id (required), command (required), max_retries, priority,
run_at (ISO-8601 UTC), timeout_seconds. Unknown fields are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			payload := []byte(args[0])
			if args[0] == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read payload from stdin: %w", err)
				}
				payload = data
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			settings, err := config.LoadSettings(ctx, store)
			if err != nil {
				return err
			}

			job, err := domain.ParseSubmission(payload, settings.MaxRetries)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			job.CreatedAt = now
			job.UpdatedAt = now

			if err := store.Insert(ctx, job); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "enqueued job %s\n", job.ID)
			return nil
		},
	}
}
