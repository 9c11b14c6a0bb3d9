// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// cacheDefaultCapacity bounds the number of cached classifications.
const cacheDefaultCapacity = 1000

// cacheDefaultTTL is the default lifetime of a cached classification.
// Classifications are query-shape dependent, not data dependent, so a long
// TTL is safe; 24 hours keeps the map from accumulating stale entries.
const cacheDefaultTTL = 24 * time.Hour

// Cache is a bounded in-memory classification cache keyed by a
// normalized-query hash.
//
// Description:
//
//	Fixed-capacity map with per-entry TTL. When the cache is at capacity,
//	the entry with the OLDEST INSERTION time is evicted — deliberately not
//	LRU: a cache miss simply re-invokes the classifier, so strict recency
//	tracking buys nothing over insertion order here.
//
//	Concurrent callers share the cache. No cross-request ordering is
//	guaranteed; concurrent misses for the same query may both invoke the
//	backend and the later Store wins.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	capacity int
	ttl      time.Duration
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	result     Result
	insertedAt time.Time
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
}

// NewCache creates a classification cache.
//
// Inputs:
//   - capacity: Maximum entry count. Pass 0 to use the default (1000).
//   - ttl: Entry lifetime. Pass 0 to use the default (24 hours).
//
// Outputs:
//   - *Cache: Ready-to-use cache. Never nil.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = cacheDefaultCapacity
	}
	if ttl <= 0 {
		ttl = cacheDefaultTTL
	}
	return &Cache{
		entries:  make(map[string]cacheEntry, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get returns the cached classification for a query, if present and not
// expired. Expired entries are deleted on access.
//
// Outputs:
//   - Result: The cached result. Zero value on miss.
//   - bool: True on hit.
func (c *Cache) Get(query string) (Result, bool) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return Result{}, false
	}
	if time.Since(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		return Result{}, false
	}

	c.hits++
	return entry.result, true
}

// Store inserts a classification for a query, evicting the
// oldest-inserted entry when the cache is at capacity.
func (c *Cache) Store(query string, result Result) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	c.entries[key] = cacheEntry{result: result, insertedAt: time.Now()}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// evictOldestLocked removes the entry with the oldest insertion time.
// Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.insertedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cacheKey builds the cache key: hex SHA256 of the normalized query
// (lowercased, whitespace-collapsed). Normalization makes trivially
// rephrased duplicates ("What is X's salary?" vs "what  is x's salary?")
// share an entry.
func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
