// Package cache provides a TTL-bounded memoization cache for completed
// validation verdicts.
//
// Entries are opaque byte snapshots keyed by a stable fingerprint.
// GetOrCompute guarantees at most one computation in flight per key;
// concurrent callers for the same key share the first caller's result.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the cache when the caller passes 0.
const DefaultMaxEntries = 100

// DefaultTTL is used when the caller passes 0.
const DefaultTTL = 30 * time.Minute

type entry struct {
	value   []byte
	addedAt time.Time
}

// Cache is a process-wide TTL cache of immutable byte snapshots. Safe
// for concurrent use.
type Cache struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]entry
	order   []string // insertion order, for eviction at capacity

	group singleflight.Group

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates a cache holding up to maxEntries values for ttl each.
// Zero values select DefaultMaxEntries and DefaultTTL.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]entry),
		now:        time.Now,
	}
}

// Get returns the cached snapshot for key, if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.addedAt) > c.ttl {
		c.evict(key)
		return nil, false
	}
	return e.value, true
}

// Set stores a snapshot under key, evicting the oldest entry at
// capacity.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			c.evict(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{value: value, addedAt: c.now()}
}

// GetOrCompute returns the cached snapshot for key, or runs fn to
// produce and cache it. At most one fn runs per key at a time;
// concurrent callers share its result. Errors are not cached.
func (c *Cache) GetOrCompute(key string, fn func() ([]byte, error)) ([]byte, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another caller may have completed while we queued.
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict removes key; the caller holds c.mu.
func (c *Cache) evict(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
