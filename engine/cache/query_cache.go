// Package cache provides a subtree-result cache keyed by structural plan
// hashes, with LRU eviction, TTL expiry, and table-dependency invalidation.
//
// Unlike the per-query execution context, a QueryCache is explicitly designed
// to outlive individual queries and be shared across them concurrently.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Row is one result row. Declared as an alias so cached results interoperate
// with the executor's row type without conversion.
type Row = map[string]interface{}

// QueryCache caches materialized subtree results.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	// Statistics
	hits   int64
	misses int64

	// Configuration
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	rows       []Row
	tables     map[string]struct{}
	createdAt  time.Time
	lastAccess time.Time
}

// NewQueryCache creates a result cache holding at most maxSize entries, each
// valid for ttl after creation.
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached rows for key, or (nil, false) on miss. An entry past
// its TTL is removed and reported as a miss. A hit refreshes the entry's LRU
// position.
func (c *QueryCache) Get(key string) ([]Row, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	entry.lastAccess = time.Now()
	atomic.AddInt64(&c.hits, 1)
	return entry.rows, true
}

// Set stores rows under key with the given table dependencies. When the cache
// is full the least-recently-accessed entry is evicted first.
func (c *QueryCache) Set(key string, rows []Row, tables []string) {
	if c == nil {
		return
	}

	deps := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		deps[t] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		rows:       rows,
		tables:     deps,
		createdAt:  now,
		lastAccess: now,
	}
}

// Invalidate removes every entry whose dependency set contains table and
// returns the number of entries removed.
func (c *QueryCache) Invalidate(table string) int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if _, ok := entry.tables[table]; ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets statistics.
func (c *QueryCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats returns hit/miss counters and the current entry count.
func (c *QueryCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.entries)
}

// evictLRU removes the entry with the oldest last access. Caller holds c.mu.
func (c *QueryCache) evictLRU() {
	var victimKey string
	var victimTime time.Time

	for key, entry := range c.entries {
		if victimKey == "" || entry.lastAccess.Before(victimTime) {
			victimKey = key
			victimTime = entry.lastAccess
		}
	}

	if victimKey != "" {
		delete(c.entries, victimKey)
	}
}
