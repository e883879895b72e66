package worker

import (
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Decision is the terminal store update the retry policy selects for a
// finished attempt.
type Decision struct {
	State       domain.JobState
	NextRetryAt *time.Time
}

// Decide is the retry policy: a pure function of the outcome, the attempt
// count after this run, the job's retry ceiling, and the backoff base.
//
// Success completes the job. A retryable failure goes to failed with
// next_retry_at = now + backoffBase^attempts seconds, or to dead once the
// ceiling is reached. Integer exponentiation, no jitter, no cap beyond
// maxRetries; backoffBase 1 degenerates to constant one-second delays.
func Decide(outcome Outcome, attemptsAfterRun, maxRetries, backoffBase int, now time.Time) Decision {
	if outcome.Success() {
		return Decision{State: domain.StateCompleted}
	}
	if attemptsAfterRun >= maxRetries {
		return Decision{State: domain.StateDead}
	}
	retryAt := now.Add(BackoffDelay(backoffBase, attemptsAfterRun))
	return Decision{State: domain.StateFailed, NextRetryAt: &retryAt}
}

// BackoffDelay returns base^attempt seconds, computed with integer
// exponentiation. base is clamped to at least 1.
func BackoffDelay(base, attempt int) time.Duration {
	if base < 1 {
		base = 1
	}
	seconds := int64(1)
	for i := 0; i < attempt; i++ {
		seconds *= int64(base)
	}
	return time.Duration(seconds) * time.Second
}
