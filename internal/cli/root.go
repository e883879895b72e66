// Package cli implements the queuectl operator command surface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/config"
	"github.com/queuectl/queuectl/internal/env"
	"github.com/queuectl/queuectl/internal/observability"
	"github.com/queuectl/queuectl/internal/storage/sqlite"
)

var (
	flagDB      string
	flagVerbose bool
)

// NewRootCmd builds the queuectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "queuectl",
		Short: "Persistent single-node background job queue",
		Long: `queuectl is a persistent, single-node background job queue.

Jobs are shell commands stored in a SQLite database. A pool of workers drains
the queue concurrently, retrying failures with exponential backoff and routing
permanently failed jobs to a dead letter queue. Jobs, their state, and
configuration survive process restarts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.SetupDefault(flagVerbose)
		},
	}

	root.PersistentFlags().StringVar(&flagDB, "db", "",
		"path to the queue database (default $QUEUECTL_DB, then queuectl.db)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(
		newEnqueueCmd(),
		newListCmd(),
		newJobCmd(),
		newStatusCmd(),
		newWorkerCmd(),
		newWorkersCmd(),
		newConfigCmd(),
		newDLQCmd(),
	)

	return root
}

// openStore resolves the database path and opens the store.
func openStore(ctx context.Context) (*sqlite.Store, error) {
	var storageCfg config.StorageConfig
	if err := env.Load(&storageCfg); err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	path := storageCfg.Resolve(flagDB)
	store, err := sqlite.OpenPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database %s: %w", path, err)
	}
	return store, nil
}
