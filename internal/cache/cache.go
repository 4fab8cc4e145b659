// Package cache provides time-bounded memoization for provider lookups
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value  V
	expiry time.Time // zero means the entry never expires
}

// Cache is a concurrency-safe key/value store with per-entry TTL. Expired
// entries are treated as absent on read; there is no eviction beyond that,
// which is acceptable at this scale. Last writer wins on Set.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time // injectable clock for testing
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the live value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || (!e.expiry.IsZero() && !c.now().Before(e.expiry)) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A ttl <= 0 means the entry never
// expires (split histories are immutable once published).
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiry = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}
