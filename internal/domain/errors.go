package domain

import "errors"

// Domain errors - these are returned by store implementations and checked at
// the CLI and HTTP boundaries.

var (
	// ErrDuplicateJob indicates an insert with an id that already exists.
	ErrDuplicateJob = errors.New("job id already exists")

	// ErrJobNotFound indicates the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotInDeadLetter indicates a dead-letter retry was requested for a
	// job that is not in the dead state.
	ErrNotInDeadLetter = errors.New("job is not in the dead letter queue")

	// ErrNotProcessing indicates a finalize was attempted on a job that is
	// no longer in processing, typically because the reaper reclaimed it.
	ErrNotProcessing = errors.New("job is not in processing state")

	// ErrInvalidConfigKey indicates an unknown configuration key.
	ErrInvalidConfigKey = errors.New("unknown configuration key")

	// ErrInvalidConfigValue indicates a configuration value outside the
	// key's allowed domain.
	ErrInvalidConfigValue = errors.New("invalid configuration value")

	// ErrInvalidState indicates a state filter that names no known state.
	ErrInvalidState = errors.New("invalid job state")
)
