package worker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuectl/queuectl/internal/domain"
)

func TestDecideSuccess(t *testing.T) {
	now := time.Now().UTC()

	d := Decide(Outcome{ExitCode: 0}, 1, 3, 2, now)
	assert.Equal(t, domain.StateCompleted, d.State)
	assert.Nil(t, d.NextRetryAt)
}

func TestDecideFailureSchedulesRetry(t *testing.T) {
	now := time.Now().UTC()

	d := Decide(Outcome{ExitCode: 1}, 1, 3, 2, now)
	assert.Equal(t, domain.StateFailed, d.State)
	require.NotNil(t, d.NextRetryAt)
	assert.Equal(t, now.Add(2*time.Second), *d.NextRetryAt)
}

// Backoff law: after the k-th failure the delay is backoffBase^k seconds.
func TestBackoffLaw(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		base    int
		attempt int
		want    time.Duration
	}{
		{"base 2 first failure", 2, 1, 2 * time.Second},
		{"base 2 second failure", 2, 2, 4 * time.Second},
		{"base 2 third failure", 2, 3, 8 * time.Second},
		{"base 3 second failure", 3, 2, 9 * time.Second},
		{"base 1 degenerates to constant", 1, 4, time.Second},
		{"base 5 first failure", 5, 1, 5 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(Outcome{ExitCode: 1}, tc.attempt, 10, tc.base, now)
			require.Equal(t, domain.StateFailed, d.State)
			require.NotNil(t, d.NextRetryAt)
			assert.Equal(t, tc.want, d.NextRetryAt.Sub(now))
		})
	}
}

// DLQ boundary: a job with max_retries = m executes at most m times before
// entering dead.
func TestDecideDeadAtCeiling(t *testing.T) {
	now := time.Now().UTC()

	d := Decide(Outcome{ExitCode: 1}, 3, 3, 2, now)
	assert.Equal(t, domain.StateDead, d.State)
	assert.Nil(t, d.NextRetryAt)

	// Zero retry budget dies on the first failure.
	d = Decide(Outcome{ExitCode: 1}, 1, 0, 2, now)
	assert.Equal(t, domain.StateDead, d.State)
}

func TestDecideTimeoutIsRetryable(t *testing.T) {
	now := time.Now().UTC()

	d := Decide(Outcome{TimedOut: true}, 1, 3, 2, now)
	assert.Equal(t, domain.StateFailed, d.State)
	require.NotNil(t, d.NextRetryAt)
}

func TestDecideSpawnErrorIsRetryable(t *testing.T) {
	now := time.Now().UTC()

	d := Decide(Outcome{SpawnError: fmt.Errorf("no such interpreter")}, 1, 3, 2, now)
	assert.Equal(t, domain.StateFailed, d.State)
}

// Exhaustive grid over small (attempts, maxRetries, base) triples: the
// decision is dead exactly when the ceiling is reached, and the scheduled
// delay always follows the law.
func TestDecideGrid(t *testing.T) {
	now := time.Now().UTC()

	for maxRetries := 0; maxRetries <= 4; maxRetries++ {
		for base := 1; base <= 3; base++ {
			for attempts := 1; attempts <= maxRetries+1; attempts++ {
				name := fmt.Sprintf("a%d_m%d_b%d", attempts, maxRetries, base)
				t.Run(name, func(t *testing.T) {
					d := Decide(Outcome{ExitCode: 1}, attempts, maxRetries, base, now)
					if attempts >= maxRetries {
						assert.Equal(t, domain.StateDead, d.State)
						return
					}
					require.Equal(t, domain.StateFailed, d.State)
					require.NotNil(t, d.NextRetryAt)
					assert.Equal(t, BackoffDelay(base, attempts), d.NextRetryAt.Sub(now))
					assert.Greater(t, d.NextRetryAt.Sub(now), time.Duration(0))
				})
			}
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, BackoffDelay(1, 5))
	assert.Equal(t, 16*time.Second, BackoffDelay(2, 4))
	assert.Equal(t, 27*time.Second, BackoffDelay(3, 3))
	assert.Equal(t, time.Second, BackoffDelay(0, 3), "base clamps to 1")
	assert.Equal(t, time.Second, BackoffDelay(2, 0))
}
