package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuectl/queuectl/internal/domain"
)

func TestDispatcherReturnsNilWhenEmpty(t *testing.T) {
	store := newTestStore(t)
	d := NewDispatcher(store)

	job, err := d.Next(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, job)
}

// A failed job whose retry time has passed is promoted and dispatched in the
// same call.
func TestDispatcherPromotesDueRetries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	enqueue(t, store, &domain.Job{ID: "a", Command: "false", MaxRetries: 3})

	claimed, err := store.ClaimNext(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	retryAt := now.Add(2 * time.Second)
	require.NoError(t, store.FinalizeFailure(ctx, "a", now, "exit status 1", domain.StateFailed, &retryAt))

	d := NewDispatcher(store)

	// Before the retry time nothing is eligible.
	job, err := d.Next(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, job)

	// At the retry time the job is promoted and claimed atomically from the
	// caller's point of view.
	job, err = d.Next(ctx, retryAt)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "a", job.ID)
	assert.Equal(t, domain.StateProcessing, job.State)
	assert.Equal(t, 1, job.Attempts)
}
