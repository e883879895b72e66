package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/queuectl/queuectl/internal/domain"
)

// Store is the durable, transactional persistence layer for jobs, config,
// and worker registrations. SQLite serializes writes, so every mutation runs
// under a single-writer transaction; the guarded single-statement updates in
// claim.go are what make concurrent claiming safe.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// === Timestamp representation ===

// Timestamps are stored as integer Unix milliseconds (UTC) so they sort and
// compare directly in SQL.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// === Error classification ===

// isBusy reports whether err is lock contention that a bounded retry can
// absorb (SQLITE_BUSY / SQLITE_LOCKED).
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// isUniqueViolation reports whether err is a primary-key or unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
		serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// === Transient write retry ===

const (
	writeRetryAttempts = 5
	writeRetryDelay    = 50 * time.Millisecond
)

// withWriteRetry retries op on transient lock contention with bounded
// attempts. Anything still failing after that surfaces to the caller.
func (s *Store) withWriteRetry(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(writeRetryAttempts, retry.NewConstant(writeRetryDelay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// === Row scanning ===

const jobColumns = `id, command, state, attempts, max_retries, priority, run_at,
	timeout_seconds, created_at, updated_at, next_retry_at, completed_at, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job            domain.Job
		state          string
		runAt          sql.NullInt64
		timeoutSeconds sql.NullInt64
		createdAt      int64
		updatedAt      int64
		nextRetryAt    sql.NullInt64
		completedAt    sql.NullInt64
		errorMessage   sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.Command, &state, &job.Attempts, &job.MaxRetries,
		&job.Priority, &runAt, &timeoutSeconds, &createdAt, &updatedAt,
		&nextRetryAt, &completedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	job.State = domain.JobState(state)
	job.RunAt = millisPtr(runAt)
	if timeoutSeconds.Valid {
		d := time.Duration(timeoutSeconds.Int64) * time.Second
		job.Timeout = &d
	}
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	job.NextRetryAt = millisPtr(nextRetryAt)
	job.CompletedAt = millisPtr(completedAt)
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}

	return &job, nil
}

func timeoutSecondsValue(j *domain.Job) sql.NullInt64 {
	if j.Timeout == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(j.Timeout.Seconds()), Valid: true}
}
