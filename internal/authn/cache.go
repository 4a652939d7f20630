package authn

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// VerdictCache caches token verdicts for a bounded TTL.
type VerdictCache interface {
	Get(ctx context.Context, token string) (*Verification, bool, error)
	Set(ctx context.Context, token string, verdict *Verification, ttl time.Duration) error
}

// MemoryCache is an in-process verdict cache. Suitable for a single
// instance; use the Redis cache when several instances share a backend.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   clockwork.Clock
}

type memoryEntry struct {
	verdict Verification
	expires time.Time
}

// NewMemoryCache creates an in-process verdict cache.
func NewMemoryCache(clock clockwork.Clock) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get returns the cached verdict for a token if it has not expired.
func (c *MemoryCache) Get(ctx context.Context, token string) (*Verification, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.After(c.clock.Now()) {
		delete(c.entries, token)
		return nil, false, nil
	}
	verdict := entry.verdict
	return &verdict, true, nil
}

// Set stores a verdict, pruning expired entries while it holds the
// lock.
func (c *MemoryCache) Set(ctx context.Context, token string, verdict *Verification, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, entry := range c.entries {
		if !entry.expires.After(now) {
			delete(c.entries, key)
		}
	}
	c.entries[token] = memoryEntry{verdict: *verdict, expires: now.Add(ttl)}
	return nil
}
