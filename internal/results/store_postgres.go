package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps one row per correlation id. Save is an upsert so the
// one-record-per-id invariant holds even if a callback is delivered twice.
type PostgresStore struct {
	db *sql.DB

	Now func() time.Time
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("results: db is required")
	}
	return &PostgresStore{db: db, Now: time.Now}, nil
}

// EnsureSchema creates the results table if missing. The table is tiny and
// append-then-delete, so no migration tooling is warranted here.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS call_results (
    correlation_id TEXT PRIMARY KEY,
    digit          TEXT NOT NULL DEFAULT '',
    recorded_at    TIMESTAMPTZ NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("results: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, correlationID, digit string) error {
	if correlationID == "" {
		return ErrInvalidCorrelationID
	}
	now := s.Now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO call_results (correlation_id, digit, recorded_at, created_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (correlation_id)
DO UPDATE SET digit = EXCLUDED.digit, recorded_at = EXCLUDED.recorded_at`,
		correlationID, digit, now)
	if err != nil {
		return fmt.Errorf("results: upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, correlationID string) (string, bool, error) {
	if correlationID == "" {
		return "", false, ErrInvalidCorrelationID
	}
	var digit string
	err := s.db.QueryRowContext(ctx,
		`SELECT digit FROM call_results WHERE correlation_id = $1`,
		correlationID).Scan(&digit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("results: select: %w", err)
	}
	return digit, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, correlationID string) error {
	if correlationID == "" {
		return ErrInvalidCorrelationID
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM call_results WHERE correlation_id = $1`, correlationID)
	if err != nil {
		return fmt.Errorf("results: delete: %w", err)
	}
	return nil
}

// PruneOlderThan removes rows older than age; the pg backend equivalent of
// the file store's sweep.
func (s *PostgresStore) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM call_results WHERE created_at < $1`, s.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("results: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
