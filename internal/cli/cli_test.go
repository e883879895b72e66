package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/storage/sqlite"
)

func runCLI(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--db", db}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestEnqueueAndDescribe(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	out, err := runCLI(t, db, "enqueue", `{"id":"a","command":"echo hi","priority":4}`)
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued job a")

	out, err = runCLI(t, db, "job", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "echo hi")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Priority:      4")
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	_, err := runCLI(t, db, "enqueue", `{"id":"a","command":"true"}`)
	require.NoError(t, err)

	_, err = runCLI(t, db, "enqueue", `{"id":"a","command":"true"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateJob)
}

func TestEnqueueRejectsUnknownField(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	_, err := runCLI(t, db, "enqueue", `{"id":"a","command":"true","sandbox":true}`)
	require.Error(t, err)
}

func TestListAndStatus(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	_, err := runCLI(t, db, "enqueue", `{"id":"a","command":"true"}`)
	require.NoError(t, err)
	_, err = runCLI(t, db, "enqueue", `{"id":"b","command":"false"}`)
	require.NoError(t, err)

	out, err := runCLI(t, db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")

	out, err = runCLI(t, db, "list", "--state", "pending", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "true")
	assert.NotContains(t, out, "false")

	_, err = runCLI(t, db, "list", "--state", "bogus")
	require.Error(t, err)

	out, err = runCLI(t, db, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "total")
}

func TestConfigRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	out, err := runCLI(t, db, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "max-retries")
	assert.Contains(t, out, "(default)")

	_, err = runCLI(t, db, "config", "set", "backoff-base", "3")
	require.NoError(t, err)

	out, err = runCLI(t, db, "config", "get", "backoff-base")
	require.NoError(t, err)
	assert.Contains(t, out, "3")
	assert.NotContains(t, out, "(default)")

	_, err = runCLI(t, db, "config", "set", "backoff-base", "0")
	require.Error(t, err)

	_, err = runCLI(t, db, "config", "set", "nap-time", "5")
	require.Error(t, err)

	_, err = runCLI(t, db, "config", "get", "nap-time")
	require.Error(t, err)
}

func TestEnqueueUsesConfiguredMaxRetries(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	_, err := runCLI(t, db, "config", "set", "max-retries", "7")
	require.NoError(t, err)
	_, err = runCLI(t, db, "enqueue", `{"id":"a","command":"true"}`)
	require.NoError(t, err)

	store, err := sqlite.OpenPath(context.Background(), db)
	require.NoError(t, err)
	defer store.Close()

	job, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 7, job.MaxRetries)
}

func TestDLQCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	_, err := runCLI(t, db, "enqueue", `{"id":"doomed","command":"false","max_retries":1}`)
	require.NoError(t, err)

	// Drive the job to dead through the store directly.
	store, err := sqlite.OpenPath(ctx, db)
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = store.ClaimNext(ctx, now)
	require.NoError(t, err)
	require.NoError(t, store.FinalizeFailure(ctx, "doomed", now, "exit status 1", domain.StateDead, nil))
	require.NoError(t, store.Close())

	out, err := runCLI(t, db, "dlq", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "doomed")
	assert.Contains(t, out, "exit status 1")

	out, err = runCLI(t, db, "dlq", "retry", "doomed")
	require.NoError(t, err)
	assert.Contains(t, out, "returned to pending")

	// A pending job is not retryable from the DLQ.
	_, err = runCLI(t, db, "dlq", "retry", "doomed")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotInDeadLetter)
}

func TestWorkersEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "queue.db")

	out, err := runCLI(t, db, "workers")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
}
