package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change durable queue configuration",
		Long: `Show or change durable queue configuration.

Recognized keys: max-retries (int >= 0), backoff-base (int >= 1),
worker-poll-interval (seconds, > 0). Values apply to worker pools started
after the change; running pools keep their startup snapshot.`,
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Show one key, or every key when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			keys := config.Keys
			if len(args) == 1 {
				if !slices.Contains(config.Keys, args[0]) {
					return fmt.Errorf("unknown configuration key %q", args[0])
				}
				keys = args[:1]
			}

			defaults := map[string]string{
				config.KeyMaxRetries:         fmt.Sprintf("%d", config.DefaultMaxRetries),
				config.KeyBackoffBase:        fmt.Sprintf("%d", config.DefaultBackoffBase),
				config.KeyWorkerPollInterval: fmt.Sprintf("%g", config.DefaultWorkerPollInterval),
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, key := range keys {
				value, ok, err := store.ConfigGet(ctx, key)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(w, "%s\t%s\t(default)\n", key, defaults[key])
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", key, value)
			}
			return w.Flush()
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			key := args[0]
			value, err := config.ValidateSetting(key, args[1])
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ConfigSet(ctx, key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (restart workers to apply)\n", key, value)
			return nil
		},
	}
}
