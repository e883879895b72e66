package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/queuectl/queuectl/internal/config"
	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/observability"
)

// Store is the slice of the durable store one worker loop needs. The sqlite
// store satisfies it.
type Store interface {
	ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error)
	PromoteDue(ctx context.Context, now time.Time) (int64, error)
	FinalizeSuccess(ctx context.Context, id string, now time.Time) error
	FinalizeFailure(ctx context.Context, id string, now time.Time, errMsg string, nextState domain.JobState, nextRetryAt *time.Time) error
	ReapStale(ctx context.Context, threshold time.Time) (int64, error)
	Heartbeat(ctx context.Context, workerID string, now time.Time) error
	RemoveWorker(ctx context.Context, workerID string) error
}

// Worker is one long-running loop: reap (when it owns the duty) -> promote ->
// claim -> execute -> finalize, with a heartbeat on every iteration.
type Worker struct {
	id         string
	store      Store
	dispatcher *Dispatcher
	executor   *Executor
	settings   config.Settings
	metrics    *observability.Prom

	// reaperDuty marks the single worker in the pool that runs the reaper.
	reaperDuty   bool
	staleTimeout time.Duration
	reapInterval time.Duration
	lastReap     time.Time

	finalizeRetries int
}

// NewWorker builds a worker loop. settings is the pool's config snapshot.
func NewWorker(id string, store Store, settings config.Settings, cfg *config.WorkerConfig, metrics *observability.Prom, reaperDuty bool) *Worker {
	return &Worker{
		id:              id,
		store:           store,
		dispatcher:      NewDispatcher(store),
		executor:        NewExecutor(),
		settings:        settings,
		metrics:         metrics,
		reaperDuty:      reaperDuty,
		staleTimeout:    cfg.StaleTimeout,
		reapInterval:    cfg.ReapInterval,
		finalizeRetries: config.DefaultFinalizeRetries,
	}
}

// ID returns the worker's registry identifier.
func (w *Worker) ID() string {
	return w.id
}

// Run loops until ctx is cancelled. Cancellation is observed between jobs;
// an in-flight command always runs to its own deadline.
func (w *Worker) Run(ctx context.Context) {
	slog.InfoContext(ctx, "worker started",
		"worker_id", w.id,
		"poll_interval", w.settings.PollInterval,
		"reaper_duty", w.reaperDuty)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if ctx.Err() != nil {
			break
		}

		worked := w.tick(ctx)

		// Busy loop while work is available; sleep one poll interval when
		// the queue is drained or a claim was lost to another worker.
		if worked {
			continue
		}

		timer.Reset(w.settings.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	// Deregister on clean exit. Best effort: the registry is observational.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.RemoveWorker(cleanupCtx, w.id); err != nil {
		slog.Warn("failed to deregister worker", "worker_id", w.id, "error", err)
	}

	slog.Info("worker stopped", "worker_id", w.id)
}

// tick runs one iteration and reports whether a job was executed.
func (w *Worker) tick(ctx context.Context) bool {
	now := time.Now().UTC()

	if err := w.store.Heartbeat(ctx, w.id, now); err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "heartbeat failed", "worker_id", w.id, "error", err)
	}

	if w.reaperDuty && now.Sub(w.lastReap) >= w.reapInterval {
		w.reapOnce(ctx, now)
		w.lastReap = now
	}

	job, err := w.dispatcher.Next(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "dispatch failed", "worker_id", w.id, "error", err)
		}
		return false
	}
	if job == nil {
		return false
	}

	w.runJob(ctx, job)
	return true
}

// reapOnce rescues abandoned processing claims older than the stale timeout.
func (w *Worker) reapOnce(ctx context.Context, now time.Time) {
	threshold := now.Add(-w.staleTimeout)
	reaped, err := w.store.ReapStale(ctx, threshold)
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "reap failed", "worker_id", w.id, "error", err)
		}
		return
	}
	if reaped > 0 {
		slog.InfoContext(ctx, "reaped stale jobs", "worker_id", w.id, "count", reaped)
		if w.metrics != nil {
			w.metrics.JobResults.WithLabelValues(observability.ResultReaped).Add(float64(reaped))
		}
	}
}

// runJob executes one claimed job and applies the retry policy's decision.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) {
	slog.InfoContext(ctx, "claimed job",
		"worker_id", w.id,
		"job_id", job.ID,
		"attempts", job.Attempts,
		"priority", job.Priority)

	if w.metrics != nil {
		w.metrics.JobsInFlight.Inc()
		defer w.metrics.JobsInFlight.Dec()
	}

	// The command must survive a pool shutdown signal, so execution gets a
	// fresh context bounded only by the job's own deadline.
	outcome := w.executor.Run(context.Background(), job)

	now := time.Now().UTC()
	decision := Decide(outcome, job.Attempts+1, job.MaxRetries, w.settings.BackoffBase, now)

	w.finalize(job, outcome, decision, now)
}

// finalize applies the decision, retrying transient store failures a bounded
// number of times. If it still fails, the job stays in processing and the
// reaper will rescue it.
func (w *Worker) finalize(job *domain.Job, outcome Outcome, decision Decision, now time.Time) {
	var err error
	for attempt := 0; attempt <= w.finalizeRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = w.applyDecision(ctx, job, outcome, decision, now)
		cancel()

		if err == nil || errors.Is(err, domain.ErrNotProcessing) || errors.Is(err, domain.ErrJobNotFound) {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}

	switch {
	case err == nil:
		w.logOutcome(job, outcome, decision)
	case errors.Is(err, domain.ErrNotProcessing):
		// The reaper reclaimed the job mid-run; its next owner decides.
		slog.Warn("job left processing before finalize",
			"worker_id", w.id, "job_id", job.ID)
	default:
		slog.Error("failed to finalize job, leaving for reaper",
			"worker_id", w.id, "job_id", job.ID, "error", err)
	}
}

func (w *Worker) applyDecision(ctx context.Context, job *domain.Job, outcome Outcome, decision Decision, now time.Time) error {
	if decision.State == domain.StateCompleted {
		return w.store.FinalizeSuccess(ctx, job.ID, now)
	}
	return w.store.FinalizeFailure(ctx, job.ID, now, outcome.Message(), decision.State, decision.NextRetryAt)
}

func (w *Worker) logOutcome(job *domain.Job, outcome Outcome, decision Decision) {
	switch decision.State {
	case domain.StateCompleted:
		slog.Info("job completed",
			"worker_id", w.id,
			"job_id", job.ID,
			"duration", outcome.Duration.Round(time.Millisecond))
		if w.metrics != nil {
			w.metrics.ObserveExecution(outcome.Duration, observability.ResultCompleted)
		}
	case domain.StateFailed:
		slog.Warn("job failed, retry scheduled",
			"worker_id", w.id,
			"job_id", job.ID,
			"attempts", job.Attempts+1,
			"max_retries", job.MaxRetries,
			"next_retry_at", decision.NextRetryAt,
			"error", outcome.Message())
		if w.metrics != nil {
			w.metrics.ObserveExecution(outcome.Duration, observability.ResultRetried)
		}
	case domain.StateDead:
		slog.Error("job exhausted retries, moved to dead letter queue",
			"worker_id", w.id,
			"job_id", job.ID,
			"attempts", job.Attempts+1,
			"error", outcome.Message())
		if w.metrics != nil {
			w.metrics.ObserveExecution(outcome.Duration, observability.ResultDead)
		}
	}
}
