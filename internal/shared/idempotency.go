package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates the key was already processed.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// ChargeKey builds the canonical idempotency key for a monthly charge. One
// key exists per (building, period, charge kind), so a re-run of the same
// month is detected even across processes and after a lock expiry.
func ChargeKey(buildingID int64, period Month, kind string) string {
	return fmt.Sprintf("charges:%d:%s:%s", buildingID, period.Key(), kind)
}

// IdempotencyStore persists processed keys in Postgres. The unique index on
// the key column is the actual guarantee; this type just translates the
// duplicate error.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert claims the key for source. A second claim of the same key
// returns ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, source string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || source == "" {
		return errors.New("idempotency key and source required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, source, created_at) VALUES ($1, $2, $3)`,
		key, source, time.Now().UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrIdempotencyConflict
	}
	return err
}

// Delete releases a key so a failed run can be retried.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Cleanup drops keys older than retention. Charge keys only need to outlive
// the window in which a month could plausibly be re-run.
func (s *IdempotencyStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE created_at < $1`,
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
