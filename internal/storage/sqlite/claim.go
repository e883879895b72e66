package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// ReapedMessage is recorded on jobs rescued from an abandoned claim.
const ReapedMessage = "reaped: worker presumed crashed"

// ClaimNext atomically selects the next eligible pending job and moves it to
// processing, returning the updated snapshot. Returns nil when no job is
// eligible.
//
// Eligibility: state=pending and run_at absent or due. Ordering: priority
// descending, then created_at ascending, then id as a stable tiebreaker. The
// select and the guarded update are a single statement, so a lost race
// between workers yields zero affected rows and reads nothing stale.
func (s *Store) ClaimNext(ctx context.Context, now time.Time) (*domain.Job, error) {
	var claimed *domain.Job

	err := s.withWriteRetry(ctx, func(ctx context.Context) error {
		claimed = nil
		row := s.db.QueryRowContext(ctx, `
			UPDATE jobs
			SET state = ?, updated_at = ?
			WHERE id = (
				SELECT id FROM jobs
				WHERE state = ? AND (run_at IS NULL OR run_at <= ?)
				ORDER BY priority DESC, created_at ASC, id ASC
				LIMIT 1
			) AND state = ?
			RETURNING `+jobColumns,
			string(domain.StateProcessing), toMillis(now),
			string(domain.StatePending), toMillis(now),
			string(domain.StatePending),
		)

		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// PromoteDue moves failed jobs whose next_retry_at has passed back to
// pending, returning how many were promoted. This is the single mechanism by
// which failed jobs regain eligibility; the claim query never considers them.
func (s *Store) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	var promoted int64
	err := s.withWriteRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET state = ?, updated_at = ?
			WHERE state = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?`,
			string(domain.StatePending), toMillis(now),
			string(domain.StateFailed), toMillis(now),
		)
		if err != nil {
			return fmt.Errorf("failed to promote due jobs: %w", err)
		}
		promoted, err = res.RowsAffected()
		return err
	})
	return promoted, err
}

// FinalizeSuccess moves a processing job to completed, clearing any error
// and counting the finished attempt. Returns domain.ErrNotProcessing if the
// job is no longer owned (e.g. the reaper reclaimed it mid-run).
func (s *Store) FinalizeSuccess(ctx context.Context, id string, now time.Time) error {
	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET state = ?, attempts = attempts + 1, completed_at = ?,
				error_message = NULL, next_retry_at = NULL, updated_at = ?
			WHERE id = ? AND state = ?`,
			string(domain.StateCompleted), toMillis(now), toMillis(now),
			id, string(domain.StateProcessing),
		)
		if err != nil {
			return fmt.Errorf("failed to finalize job %s: %w", id, err)
		}
		return s.requireTransition(ctx, res, id)
	})
}

// FinalizeFailure moves a processing job to failed or dead, recording the
// failure diagnostic and counting the finished attempt. nextRetryAt is
// required when nextState is failed; now stamps completed_at when dead.
func (s *Store) FinalizeFailure(ctx context.Context, id string, now time.Time, errMsg string, nextState domain.JobState, nextRetryAt *time.Time) error {
	switch nextState {
	case domain.StateFailed:
		if nextRetryAt == nil {
			return fmt.Errorf("finalize failure for %s: failed state requires next_retry_at", id)
		}
	case domain.StateDead:
	default:
		return fmt.Errorf("finalize failure for %s: invalid next state %q", id, nextState)
	}

	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		var (
			res sql.Result
			err error
		)
		if nextState == domain.StateFailed {
			res, err = s.db.ExecContext(ctx, `
				UPDATE jobs
				SET state = ?, attempts = attempts + 1, error_message = ?,
					next_retry_at = ?, updated_at = ?
				WHERE id = ? AND state = ?`,
				string(domain.StateFailed), errMsg, toMillis(*nextRetryAt),
				toMillis(now), id, string(domain.StateProcessing),
			)
		} else {
			res, err = s.db.ExecContext(ctx, `
				UPDATE jobs
				SET state = ?, attempts = attempts + 1, error_message = ?,
					completed_at = ?, next_retry_at = NULL, updated_at = ?
				WHERE id = ? AND state = ?`,
				string(domain.StateDead), errMsg, toMillis(now),
				toMillis(now), id, string(domain.StateProcessing),
			)
		}
		if err != nil {
			return fmt.Errorf("failed to finalize job %s: %w", id, err)
		}
		return s.requireTransition(ctx, res, id)
	})
}

// ReapStale returns every processing job whose updated_at predates threshold
// to pending, preserving attempts. Returns how many jobs were rescued.
func (s *Store) ReapStale(ctx context.Context, threshold time.Time) (int64, error) {
	var reaped int64
	err := s.withWriteRetry(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET state = ?, error_message = ?, updated_at = ?
			WHERE state = ? AND updated_at < ?`,
			string(domain.StatePending), ReapedMessage, toMillis(now),
			string(domain.StateProcessing), toMillis(threshold),
		)
		if err != nil {
			return fmt.Errorf("failed to reap stale jobs: %w", err)
		}
		reaped, err = res.RowsAffected()
		return err
	})
	return reaped, err
}

// RetryDead resets a dead job to pending with zero attempts, clearing every
// trace of its previous failures. Returns domain.ErrNotInDeadLetter when the
// job exists but is not dead.
func (s *Store) RetryDead(ctx context.Context, id string, now time.Time) error {
	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET state = ?, attempts = 0, completed_at = NULL,
				next_retry_at = NULL, error_message = NULL, updated_at = ?
			WHERE id = ? AND state = ?`,
			string(domain.StatePending), toMillis(now),
			id, string(domain.StateDead),
		)
		if err != nil {
			return fmt.Errorf("failed to retry dead job %s: %w", id, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			if _, getErr := s.Get(ctx, id); getErr != nil {
				return getErr
			}
			return fmt.Errorf("%w: %s", domain.ErrNotInDeadLetter, id)
		}
		return nil
	})
}

// requireTransition maps a zero-row guarded update to the precise error:
// the job vanished, or it left processing before we finalized.
func (s *Store) requireTransition(ctx context.Context, res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: %s", domain.ErrNotProcessing, id)
	}
	return nil
}
