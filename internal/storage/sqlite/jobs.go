package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/queuectl/queuectl/internal/domain"
)

// Insert persists a new job in pending state with zero attempts.
// Returns domain.ErrDuplicateJob if the id already exists.
func (s *Store) Insert(ctx context.Context, job *domain.Job) error {
	if job.CreatedAt.IsZero() {
		return fmt.Errorf("job %s has no created_at", job.ID)
	}

	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		now := toMillis(job.CreatedAt)

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO jobs (id, command, state, attempts, max_retries, priority,
				run_at, timeout_seconds, created_at, updated_at)
			VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.Command, string(domain.StatePending), job.MaxRetries,
			job.Priority, nullMillis(job.RunAt), timeoutSecondsValue(job),
			now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateJob, job.ID)
			}
			return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
		}
		return nil
	})
}

// Get returns the job with the given id, or domain.ErrJobNotFound.
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs, optionally filtered by state, in submission order.
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, state *domain.JobState, limit int) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if state != nil {
		if !state.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidState, string(*state))
		}
		query += ` WHERE state = ?`
		args = append(args, string(*state))
	}
	query += ` ORDER BY created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}

// CountsByState returns the number of jobs in each state. States with no
// jobs are present with a zero count.
func (s *Store) CountsByState(ctx context.Context) (domain.StateCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(domain.StateCounts, len(domain.AllStates))
	for _, st := range domain.AllStates {
		counts[st] = 0
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[domain.JobState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}
	return counts, nil
}
