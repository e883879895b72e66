package domain

import "time"

// JobState is the lifecycle state of a job.
type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
	StateDead       JobState = "dead"
)

// AllStates lists every valid job state, in lifecycle order.
var AllStates = []JobState{StatePending, StateProcessing, StateCompleted, StateFailed, StateDead}

// Valid reports whether s is a known job state.
func (s JobState) Valid() bool {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed, StateDead:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state. Terminal states are only
// left via an explicit dead-letter retry.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateDead
}

// DefaultTimeout is the per-job execution deadline applied when a job does
// not carry its own timeout_seconds.
const DefaultTimeout = 300 * time.Second

// Job is a shell command queued for execution.
//
// Attempts counts completed execution attempts and is incremented after each
// run. NextRetryAt is set when the job enters failed and becomes the new
// eligibility floor. CompletedAt is set on entering completed or dead.
type Job struct {
	ID           string
	Command      string
	State        JobState
	Attempts     int
	MaxRetries   int
	Priority     int
	RunAt        *time.Time
	Timeout      *time.Duration
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
}

// ExecutionTimeout returns the job's execution deadline, falling back to
// DefaultTimeout when none was supplied.
func (j *Job) ExecutionTimeout() time.Duration {
	if j.Timeout != nil && *j.Timeout > 0 {
		return *j.Timeout
	}
	return DefaultTimeout
}

// Eligible reports whether the job may be claimed at the given instant.
func (j *Job) Eligible(now time.Time) bool {
	if j.State != StatePending {
		return false
	}
	return j.RunAt == nil || !j.RunAt.After(now)
}

// WorkerInfo is the ephemeral registration record for one worker loop. It is
// observational only; the jobs table stays authoritative for scheduling.
type WorkerInfo struct {
	ID          string
	StartedAt   time.Time
	HeartbeatAt time.Time
}

// StateCounts maps each job state to the number of jobs currently in it.
type StateCounts map[JobState]int

// Drained reports whether no runnable work remains: nothing pending,
// processing, or awaiting a retry.
func (c StateCounts) Drained() bool {
	return c[StatePending] == 0 && c[StateProcessing] == 0 && c[StateFailed] == 0
}
