package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// The workers table is observational only: the query surface and reaper
// heuristics read it, but scheduling correctness never depends on it.

// Heartbeat upserts a worker registration, stamping its most recent
// heartbeat. The started_at of an existing row is preserved.
func (s *Store) Heartbeat(ctx context.Context, workerID string, now time.Time) error {
	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO workers (id, started_at, heartbeat_at) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET heartbeat_at = excluded.heartbeat_at`,
			workerID, toMillis(now), toMillis(now),
		)
		if err != nil {
			return fmt.Errorf("failed to record heartbeat for %s: %w", workerID, err)
		}
		return nil
	})
}

// ListWorkers returns every registered worker, oldest first.
func (s *Store) ListWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, heartbeat_at FROM workers ORDER BY started_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []*domain.WorkerInfo
	for rows.Next() {
		var (
			w           domain.WorkerInfo
			startedAt   int64
			heartbeatAt int64
		)
		if err := rows.Scan(&w.ID, &startedAt, &heartbeatAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %w", err)
		}
		w.StartedAt = fromMillis(startedAt)
		w.HeartbeatAt = fromMillis(heartbeatAt)
		workers = append(workers, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate worker rows: %w", err)
	}
	return workers, nil
}

// RemoveWorker deletes a worker registration on clean shutdown.
func (s *Store) RemoveWorker(ctx context.Context, workerID string) error {
	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE id = ?`, workerID)
		if err != nil {
			return fmt.Errorf("failed to remove worker %s: %w", workerID, err)
		}
		return nil
	})
}
