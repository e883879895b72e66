package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConfigGet returns the stored value for key. The boolean reports whether a
// row exists; callers apply defaults for absent rows.
func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read config %s: %w", key, err)
	}
	return value, true, nil
}

// ConfigSet writes key=value, overwriting any existing row.
func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	return s.withWriteRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("failed to set config %s: %w", key, err)
		}
		return nil
	})
}
