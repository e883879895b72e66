package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmissionMinimal(t *testing.T) {
	job, err := ParseSubmission([]byte(`{"id":"a","command":"true"}`), 3)
	require.NoError(t, err)

	assert.Equal(t, "a", job.ID)
	assert.Equal(t, "true", job.Command)
	assert.Equal(t, StatePending, job.State)
	assert.Equal(t, 3, job.MaxRetries, "global default applies")
	assert.Zero(t, job.Priority)
	assert.Nil(t, job.RunAt)
	assert.Nil(t, job.Timeout)
}

func TestParseSubmissionAllFields(t *testing.T) {
	payload := `{
		"id": "b",
		"command": "echo hi",
		"max_retries": 5,
		"priority": -2,
		"run_at": "2026-08-01T12:00:00Z",
		"timeout_seconds": 30
	}`
	job, err := ParseSubmission([]byte(payload), 3)
	require.NoError(t, err)

	assert.Equal(t, 5, job.MaxRetries)
	assert.Equal(t, -2, job.Priority)
	require.NotNil(t, job.RunAt)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), *job.RunAt)
	require.NotNil(t, job.Timeout)
	assert.Equal(t, 30*time.Second, *job.Timeout)
}

func TestParseSubmissionRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"unknown field", `{"id":"a","command":"true","nice":10}`},
		{"missing id", `{"command":"true"}`},
		{"missing command", `{"id":"a"}`},
		{"negative max_retries", `{"id":"a","command":"true","max_retries":-1}`},
		{"zero timeout", `{"id":"a","command":"true","timeout_seconds":0}`},
		{"negative timeout", `{"id":"a","command":"true","timeout_seconds":-5}`},
		{"bad run_at", `{"id":"a","command":"true","run_at":"tomorrow"}`},
		{"not json", `enqueue this please`},
		{"trailing garbage", `{"id":"a","command":"true"}{"id":"b"}`},
		{"wrong type", `{"id":"a","command":"true","priority":"high"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSubmission([]byte(tc.payload), 3)
			assert.Error(t, err)
		})
	}
}

func TestExecutionTimeoutDefault(t *testing.T) {
	j := &Job{}
	assert.Equal(t, DefaultTimeout, j.ExecutionTimeout())

	d := 10 * time.Second
	j.Timeout = &d
	assert.Equal(t, d, j.ExecutionTimeout())
}

func TestEligible(t *testing.T) {
	now := time.Now().UTC()

	j := &Job{State: StatePending}
	assert.True(t, j.Eligible(now))

	future := now.Add(time.Minute)
	j.RunAt = &future
	assert.False(t, j.Eligible(now))
	assert.True(t, j.Eligible(future))

	j = &Job{State: StateProcessing}
	assert.False(t, j.Eligible(now))
}

func TestStateHelpers(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateDead.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateFailed.Terminal())

	assert.True(t, StatePending.Valid())
	assert.False(t, JobState("zombie").Valid())
}

func TestStateCountsDrained(t *testing.T) {
	counts := StateCounts{StateCompleted: 10, StateDead: 1}
	assert.True(t, counts.Drained())

	counts[StateFailed] = 1
	assert.False(t, counts.Drained())
}
