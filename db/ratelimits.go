package db

import (
	"context"
	"database/sql"
	"errors"
)

// RateLimitRepo is the authoritative (relational) half of the gate's
// per-account state (§4.2); a Redis fast-path cache sits in front of it
// (see the gate package).
type RateLimitRepo struct {
	db *sql.DB
}

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo { return &RateLimitRepo{db: db} }

func (r *RateLimitRepo) Get(ctx context.Context, accountID string) (RateLimit, error) {
	var rl RateLimit
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until
		 FROM rate_limits WHERE account_id = $1`, accountID,
	).Scan(&rl.AccountID, &rl.Remaining, &rl.LimitTotal, &rl.ResetAt, &rl.ConsecutiveFailures, &rl.LastFailureAt, &rl.CircuitOpenUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return RateLimit{AccountID: accountID}, nil
	}
	return rl, err
}

// Upsert writes the full row, used after every gate state transition.
func (r *RateLimitRepo) Upsert(ctx context.Context, rl RateLimit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account_id) DO UPDATE SET
			remaining = EXCLUDED.remaining,
			limit_total = EXCLUDED.limit_total,
			reset_at = EXCLUDED.reset_at,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_failure_at = EXCLUDED.last_failure_at,
			circuit_open_until = EXCLUDED.circuit_open_until`,
		rl.AccountID, rl.Remaining, rl.LimitTotal, rl.ResetAt, rl.ConsecutiveFailures, rl.LastFailureAt, rl.CircuitOpenUntil,
	)
	return err
}

func (r *RateLimitRepo) Delete(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE account_id = $1`, accountID)
	return err
}
