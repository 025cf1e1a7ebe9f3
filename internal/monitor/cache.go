package monitor

import (
	"sync"
	"time"
)

// Cache memoizes the last Sample per user for a short TTL to absorb bursty reads.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[UserID]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	sample     Sample
	capturedAt time.Time
}

// NewCache creates a cache whose entries are served for ttl after being set.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[UserID]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached sample if it is younger than the TTL.
// An expired entry is dropped.
func (c *Cache) Get(userID UserID) (Sample, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return Sample{}, false
	}

	if c.now().Sub(entry.capturedAt) < c.ttl {
		return entry.sample, true
	}

	c.mu.Lock()
	if cur, ok := c.entries[userID]; ok && cur.capturedAt.Equal(entry.capturedAt) {
		delete(c.entries, userID)
	}
	c.mu.Unlock()
	return Sample{}, false
}

// Set stores sample for userID, overwriting any previous entry.
func (c *Cache) Set(userID UserID, sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{sample: sample, capturedAt: c.now()}
}

// Invalidate removes the entry for userID so the next Get misses.
func (c *Cache) Invalidate(userID UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
