package util

import (
	"sync"
	"time"
)

// TTLCache is a bounded in-memory cache. Entries expire after maxAge and the
// oldest entry is evicted when the cache is full.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
	maxAge  time.Duration
	maxSize int
	now     func() time.Time
}

type cacheEntry[V any] struct {
	value     V
	timestamp time.Time
}

// NewTTLCache creates a cache holding at most maxSize entries for maxAge.
func NewTTLCache[K comparable, V any](maxAge time.Duration, maxSize int) *TTLCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TTLCache[K, V]{
		entries: make(map[K]cacheEntry[V], maxSize),
		maxAge:  maxAge,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a cached value if it exists and is not expired
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || c.expired(entry) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value, evicting expired entries first and then the oldest
// one if the cache is still full.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = cacheEntry[V]{value: value, timestamp: c.now()}
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTLCache[K, V]) expired(e cacheEntry[V]) bool {
	return c.maxAge > 0 && c.now().Sub(e.timestamp) > c.maxAge
}

func (c *TTLCache[K, V]) evictLocked() {
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey K
	var oldestTime time.Time
	first := true
	for k, v := range c.entries {
		if first || v.timestamp.Before(oldestTime) {
			oldestKey = k
			oldestTime = v.timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
