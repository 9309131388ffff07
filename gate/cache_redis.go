package gate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the Cache implementation backing the gate's fast path,
// adapted from the teacher's redisclient.Client: a thin wrapper over a
// single *redis.Client built from a parsed connection URL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache parses redisURL and wraps the resulting client.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opt)}, nil
}

func cacheKey(accountID string) string {
	return "gate:blocked:" + accountID
}

// Blocked reports a cached block. A Redis error is treated as a cache
// miss (ok=false) so the gate falls through to the authoritative row
// rather than failing the request.
func (c *RedisCache) Blocked(ctx context.Context, accountID string) (blocked bool, ok bool) {
	ttl, err := c.client.TTL(ctx, cacheKey(accountID)).Result()
	if err != nil || ttl <= 0 {
		return false, false
	}
	return true, true
}

func (c *RedisCache) SetBlocked(ctx context.Context, accountID string, until time.Time) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return
	}
	_ = c.client.Set(ctx, cacheKey(accountID), "1", ttl).Err()
}

func (c *RedisCache) Clear(ctx context.Context, accountID string) {
	_ = c.client.Del(ctx, cacheKey(accountID)).Err()
}

// Ping matches the teacher redisclient's health-check shape, wired into
// /readyz.
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}
