package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/queuectl/queuectl/internal/config"
	"github.com/queuectl/queuectl/internal/observability"
)

// Pool spawns a fixed number of worker loops sharing one store, one shutdown
// signal, and one configuration snapshot captured at start. The pool does not
// resize; N is the operator's choice.
type Pool struct {
	store    Store
	settings config.Settings
	cfg      *config.WorkerConfig
	count    int
	metrics  *observability.Prom

	workers []*Worker
}

// NewPool builds a pool of count workers. Worker zero owns the reaper duty.
func NewPool(store Store, settings config.Settings, cfg *config.WorkerConfig, count int, metrics *observability.Prom) *Pool {
	if count <= 0 {
		count = 1
	}

	p := &Pool{
		store:    store,
		settings: settings,
		cfg:      cfg,
		count:    count,
		metrics:  metrics,
	}

	base := workerIDBase()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%s-%d", base, i+1)
		p.workers = append(p.workers, NewWorker(id, store, settings, cfg, metrics, i == 0))
	}

	return p
}

// Workers returns the pool's worker loops, in spawn order.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Run starts every worker and blocks until ctx is cancelled and the workers
// have drained their in-flight jobs, bounded by the shutdown grace period.
// Jobs still claimed after the grace window stay in processing for the next
// live pool's reaper.
func (p *Pool) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "worker pool starting",
		"workers", p.count,
		"poll_interval", p.settings.PollInterval,
		"max_retries", p.settings.MaxRetries,
		"backoff_base", p.settings.BackoffBase)

	// Rescue anything a previous pool abandoned before taking new claims.
	threshold := time.Now().UTC().Add(-p.cfg.StaleTimeout)
	if reaped, err := p.store.ReapStale(ctx, threshold); err != nil {
		return fmt.Errorf("startup reap failed: %w", err)
	} else if reaped > 0 {
		slog.InfoContext(ctx, "startup reap rescued stale jobs", "count", reaped)
		if p.metrics != nil {
			p.metrics.JobResults.WithLabelValues(observability.ResultReaped).Add(float64(reaped))
		}
	}

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	<-ctx.Done()
	slog.Info("shutdown signal observed, waiting for in-flight jobs",
		"grace", p.cfg.ShutdownGrace)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.cfg.ShutdownGrace)
	defer timer.Stop()

	select {
	case <-done:
		slog.Info("worker pool stopped cleanly")
		return nil
	case <-timer.C:
		slog.Warn("shutdown grace elapsed, abandoning in-flight jobs to the reaper")
		return nil
	}
}

// workerIDBase builds the hostname-pid-uuid prefix shared by the pool's
// worker identifiers.
func workerIDBase() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}
