package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Submission is the job submission payload accepted at the boundary.
// Unknown fields are rejected during parsing.
type Submission struct {
	ID             string  `json:"id"`
	Command        string  `json:"command"`
	MaxRetries     *int    `json:"max_retries,omitempty"`
	Priority       *int    `json:"priority,omitempty"`
	RunAt          *string `json:"run_at,omitempty"`
	TimeoutSeconds *int    `json:"timeout_seconds,omitempty"`
}

// ParseSubmission decodes and validates a submission payload.
// defaultMaxRetries applies when the payload omits max_retries.
func ParseSubmission(payload []byte, defaultMaxRetries int) (*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var sub Submission
	if err := dec.Decode(&sub); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	// Reject trailing content after the document.
	if dec.More() {
		return nil, fmt.Errorf("malformed payload: trailing data after document")
	}

	return sub.ToJob(defaultMaxRetries)
}

// ToJob validates the submission and builds a pending Job from it.
func (s *Submission) ToJob(defaultMaxRetries int) (*Job, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("field %q is required", "id")
	}
	if s.Command == "" {
		return nil, fmt.Errorf("field %q is required", "command")
	}

	job := &Job{
		ID:         s.ID,
		Command:    s.Command,
		State:      StatePending,
		MaxRetries: defaultMaxRetries,
	}

	if s.MaxRetries != nil {
		if *s.MaxRetries < 0 {
			return nil, fmt.Errorf("max_retries must be >= 0, got %d", *s.MaxRetries)
		}
		job.MaxRetries = *s.MaxRetries
	}
	if s.Priority != nil {
		job.Priority = *s.Priority
	}
	if s.RunAt != nil {
		t, err := time.Parse(time.RFC3339, *s.RunAt)
		if err != nil {
			return nil, fmt.Errorf("run_at must be an ISO-8601 UTC timestamp: %w", err)
		}
		utc := t.UTC()
		job.RunAt = &utc
	}
	if s.TimeoutSeconds != nil {
		if *s.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("timeout_seconds must be > 0, got %d", *s.TimeoutSeconds)
		}
		d := time.Duration(*s.TimeoutSeconds) * time.Second
		job.Timeout = &d
	}

	return job, nil
}
