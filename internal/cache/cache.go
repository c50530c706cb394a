// Package cache provides an in-memory TTL cache of encoded API responses
// keyed by path, each stored with its ETag.
package cache

import (
	"context"
	"sync"
	"time"
)

const evictInterval = 5 * time.Minute

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache. A disabled cache stores nothing.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Enabled     bool `json:"enabled"`
	TotalKeys   int  `json:"total_keys"`
	ActiveKeys  int  `json:"active_keys"`
	ExpiredKeys int  `json:"expired_keys"`
}

// New creates a cache whose entries live for ttl.
func New(enabled bool, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL is the lifetime of new entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the cached body and ETag for key.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || !c.now().Before(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores data under key with the given ETag.
func (c *Cache) Set(key string, data []byte, etag string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: data, etag: etag, expiresAt: c.now().Add(c.ttl)}
}

// Stats counts live and expired entries.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	s := Stats{Enabled: c.enabled, TotalKeys: len(c.entries)}
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			s.ActiveKeys++
		}
	}
	s.ExpiredKeys = s.TotalKeys - s.ActiveKeys
	return s
}

// Run evicts expired entries periodically until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) {
	if !c.enabled {
		return
	}
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// MatchETag reports whether an If-None-Match header matches etag.
func MatchETag(ifNoneMatch, etag string) bool {
	switch ifNoneMatch {
	case "":
		return false
	case "*":
		return true
	}
	return ifNoneMatch == etag
}
