package gate

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a Cache for tests and single-process development,
// grounded on the same mutex-guarded-map shape as corpus.MemoryBackend.
type MemoryCache struct {
	mu      sync.Mutex
	blocked map[string]time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{blocked: make(map[string]time.Time)}
}

func (c *MemoryCache) Blocked(_ context.Context, accountID string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.blocked[accountID]
	if !ok {
		return false, false
	}
	if time.Now().After(until) {
		delete(c.blocked, accountID)
		return false, false
	}
	return true, true
}

func (c *MemoryCache) SetBlocked(_ context.Context, accountID string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked[accountID] = until
}

func (c *MemoryCache) Clear(_ context.Context, accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.blocked, accountID)
}
