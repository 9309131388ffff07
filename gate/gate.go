// Package gate implements the per-account rate-limit/circuit-breaker
// state machine of §4.2. Authoritative state lives in the relational
// rate_limits table; a Redis-backed cache sits in front of it as a fast
// existence/TTL check, mirroring the role the teacher gateway's own
// comments describe wanting ("for distributed setups, extend with Redis").
package gate

import (
	"context"
	"time"

	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/provider"
)

const circuitOpenDuration = 5 * time.Minute
const consecutiveFailureThreshold = 3

// Gate guards per-account fetches against the rate-limit/circuit-breaker
// state machine described in §4.2.
type Gate struct {
	repo  *db.RateLimitRepo
	cache Cache // may be nil; gate degrades to DB-only checks without it
	now   func() time.Time
}

// Cache is the fast-path existence/TTL check in front of the relational
// rate_limits table. The Redis implementation lives in cache_redis.go.
type Cache interface {
	// Blocked reports whether accountID is known-blocked without
	// touching the database; ok is false on a cache miss.
	Blocked(ctx context.Context, accountID string) (blocked bool, ok bool)
	// SetBlocked caches that accountID is blocked until until.
	SetBlocked(ctx context.Context, accountID string, until time.Time)
	// Clear removes any cached block for accountID.
	Clear(ctx context.Context, accountID string)
}

func New(repo *db.RateLimitRepo, cache Cache) *Gate {
	return &Gate{repo: repo, cache: cache, now: time.Now}
}

// ShouldFetch reports whether a fetch for accountID is currently allowed,
// per §4.2: "false iff now < circuit_open_until OR (remaining == 0 AND
// now < reset_at)". Consults the cache first; falls through to the
// authoritative row on a miss.
func (g *Gate) ShouldFetch(ctx context.Context, accountID string) (bool, error) {
	if g.cache != nil {
		if blocked, ok := g.cache.Blocked(ctx, accountID); ok {
			return !blocked, nil
		}
	}

	rl, err := g.repo.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	now := g.now()

	if rl.CircuitOpenUntil != nil && now.Before(*rl.CircuitOpenUntil) {
		if g.cache != nil {
			g.cache.SetBlocked(ctx, accountID, *rl.CircuitOpenUntil)
		}
		return false, nil
	}
	if rl.Remaining != nil && *rl.Remaining == 0 && rl.ResetAt != nil && now.Before(*rl.ResetAt) {
		if g.cache != nil {
			g.cache.SetBlocked(ctx, accountID, *rl.ResetAt)
		}
		return false, nil
	}
	if g.cache != nil {
		g.cache.Clear(ctx, accountID)
	}
	return true, nil
}

// RecordSuccess applies the §4.2 "on success" transition: absorb the
// observed rate-limit headers, clear consecutive_failures and
// circuit_open_until.
func (g *Gate) RecordSuccess(ctx context.Context, accountID string, headers provider.RateLimitHeaders) error {
	rl, err := g.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	rl.AccountID = accountID
	rl.Remaining = headers.Remaining
	rl.LimitTotal = headers.Limit
	if headers.ResetAt != nil {
		t := time.Unix(*headers.ResetAt, 0).UTC()
		rl.ResetAt = &t
	}
	rl.ConsecutiveFailures = 0
	rl.CircuitOpenUntil = nil

	if err := g.repo.Upsert(ctx, rl); err != nil {
		return err
	}
	if g.cache != nil {
		g.cache.Clear(ctx, accountID)
	}
	return nil
}

// RecordRateLimited applies the §4.2 "on rate_limited" transition.
func (g *Gate) RecordRateLimited(ctx context.Context, accountID string, retryAfterSeconds int) error {
	rl, err := g.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	now := g.now()
	rl.AccountID = accountID
	zero := 0
	rl.Remaining = &zero
	resetAt := now.Add(time.Duration(retryAfterSeconds) * time.Second)
	rl.ResetAt = &resetAt
	rl.ConsecutiveFailures++
	rl.LastFailureAt = &now
	g.maybeOpenCircuit(&rl, now)

	if err := g.repo.Upsert(ctx, rl); err != nil {
		return err
	}
	if g.cache != nil {
		g.cache.SetBlocked(ctx, accountID, resetAt)
	}
	return nil
}

// RecordFailure applies the §4.2 "on any failure" transition (auth
// expiry, api errors, network errors, timeouts).
func (g *Gate) RecordFailure(ctx context.Context, accountID string) error {
	rl, err := g.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	now := g.now()
	rl.AccountID = accountID
	rl.ConsecutiveFailures++
	rl.LastFailureAt = &now
	g.maybeOpenCircuit(&rl, now)

	if err := g.repo.Upsert(ctx, rl); err != nil {
		return err
	}
	if rl.CircuitOpenUntil != nil && g.cache != nil {
		g.cache.SetBlocked(ctx, accountID, *rl.CircuitOpenUntil)
	}
	return nil
}

// RecordTimeout applies §5's "the gate records a timeout as a failure
// with retry_after = 60s" rule.
func (g *Gate) RecordTimeout(ctx context.Context, accountID string) error {
	return g.RecordRateLimited(ctx, accountID, 60)
}

func (g *Gate) maybeOpenCircuit(rl *db.RateLimit, now time.Time) {
	if rl.ConsecutiveFailures >= consecutiveFailureThreshold {
		until := now.Add(circuitOpenDuration)
		rl.CircuitOpenUntil = &until
	}
}
