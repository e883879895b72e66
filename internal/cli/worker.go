package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/config"
	queuehttp "github.com/queuectl/queuectl/internal/http"
	"github.com/queuectl/queuectl/internal/observability"
	"github.com/queuectl/queuectl/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Worker pool operations",
	}
	cmd.AddCommand(newWorkerStartCmd())
	return cmd
}

func newWorkerStartCmd() *cobra.Command {
	var (
		flagCount         int
		flagDashboardAddr string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run a pool of N workers until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			workerCfg, err := config.LoadWorkerConfig()
			if err != nil {
				return err
			}
			if flagDashboardAddr != "" {
				workerCfg.DashboardAddr = flagDashboardAddr
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			// Tuneables are snapshotted here; changing them later requires
			// a worker restart.
			settings, err := config.LoadSettings(ctx, store)
			if err != nil {
				return err
			}

			metrics := observability.NewProm()
			pool := worker.NewPool(store, settings, workerCfg, flagCount, metrics)

			if workerCfg.DashboardAddr != "" {
				dashboard := queuehttp.NewServer(workerCfg.DashboardAddr, store, metrics.Registry)
				go func() {
					if err := dashboard.Start(); err != nil {
						slog.Error("dashboard server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := dashboard.Shutdown(shutdownCtx); err != nil {
						slog.Warn("dashboard shutdown failed", "error", err)
					}
				}()
			}

			return pool.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&flagCount, "count", 1, "number of worker loops to run")
	cmd.Flags().StringVar(&flagDashboardAddr, "dashboard-addr", "",
		"serve the read-only dashboard and metrics on this address (e.g. :8080)")

	return cmd
}

func newWorkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List registered workers with heartbeat age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			workers, err := store.ListWorkers(ctx)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tHEARTBEAT AGE")
			for _, wk := range workers {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					wk.ID,
					wk.StartedAt.UTC().Format(time.RFC3339),
					now.Sub(wk.HeartbeatAt).Round(time.Second))
			}
			return w.Flush()
		},
	}
}
