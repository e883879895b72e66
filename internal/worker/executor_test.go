package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuectl/queuectl/internal/domain"
)

func execJob(command string, timeout time.Duration) *domain.Job {
	j := &domain.Job{ID: "t", Command: command, State: domain.StateProcessing}
	if timeout > 0 {
		j.Timeout = &timeout
	}
	return j
}

func TestExecutorSuccess(t *testing.T) {
	e := NewExecutor()

	out := e.Run(context.Background(), execJob("true", 0))
	assert.True(t, out.Success())
	assert.Zero(t, out.ExitCode)
	assert.Empty(t, out.Message())
}

func TestExecutorNonZeroExit(t *testing.T) {
	e := NewExecutor()

	out := e.Run(context.Background(), execJob("exit 3", 0))
	assert.False(t, out.Success())
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Message(), "exit status 3")
}

func TestExecutorCapturesStderr(t *testing.T) {
	e := NewExecutor()

	out := e.Run(context.Background(), execJob("echo broken pipe >&2; exit 1", 0))
	assert.False(t, out.Success())
	assert.Contains(t, out.Stderr, "broken pipe")
	assert.Contains(t, out.Message(), "broken pipe")
}

func TestExecutorStderrTailBounded(t *testing.T) {
	e := NewExecutor()

	// Emit well over the tail limit; only the last 4 KiB survive.
	out := e.Run(context.Background(), execJob(`i=0; while [ $i -lt 1000 ]; do echo "line $i of error output" >&2; i=$((i+1)); done; exit 1`, 0))
	assert.False(t, out.Success())
	assert.LessOrEqual(t, len(out.Stderr), stderrTailLimit)
	assert.Contains(t, out.Stderr, "line 999")
	assert.NotContains(t, out.Stderr, "line 0 of")
}

func TestExecutorCommandNotFound(t *testing.T) {
	e := NewExecutor()

	// The shell reports a missing command with exit 127.
	out := e.Run(context.Background(), execJob("definitely-not-a-command-xyz", 0))
	assert.False(t, out.Success())
	assert.Equal(t, 127, out.ExitCode)
}

func TestExecutorTimeout(t *testing.T) {
	e := NewExecutor()

	start := time.Now()
	out := e.Run(context.Background(), execJob("sleep 30", time.Second))
	elapsed := time.Since(start)

	assert.False(t, out.Success())
	assert.True(t, out.TimedOut)
	assert.Contains(t, out.Message(), "timeout")
	// The subprocess was terminated, not waited out.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExecutorSpawnError(t *testing.T) {
	e := &Executor{Shell: "/nonexistent/shell"}

	out := e.Run(context.Background(), execJob("true", 0))
	assert.False(t, out.Success())
	require.Error(t, out.SpawnError)
	assert.True(t, strings.HasPrefix(out.Message(), "spawn error"))
}

func TestOutcomeMessageForms(t *testing.T) {
	assert.Empty(t, Outcome{}.Message())
	assert.Equal(t, "exit status 2", Outcome{ExitCode: 2}.Message())
	assert.Equal(t, "exit status 2: oops", Outcome{ExitCode: 2, Stderr: "oops\n"}.Message())
	assert.Contains(t, Outcome{TimedOut: true, Duration: 2 * time.Second}.Message(), "2s")
}

func TestTailBuffer(t *testing.T) {
	var b tailBuffer
	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", b.String())

	big := strings.Repeat("x", stderrTailLimit)
	_, err = b.Write([]byte(big))
	require.NoError(t, err)
	assert.Len(t, b.String(), stderrTailLimit)
	assert.True(t, strings.HasSuffix(b.String(), "x"))
}
