// Package cache holds the in-process result cache used by the service layer.
// The engine itself never caches.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults applied by New.
const (
	DefaultCapacity = 256
	DefaultTTL      = 5 * time.Minute
)

// LRU is a thread-safe least-recently-used cache with a fixed TTL per entry,
// backed by expirable.LRU. It adds the hit and miss counters reported by
// Stats. Expired entries are dropped by expirable's own cleanup.
type LRU[K comparable, V any] struct {
	lru *expirable.LRU[K, V]

	capacity int
	ttl      time.Duration

	hits, misses, evictions atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64 // capacity evictions, expiries and removals
	Size      int
}

// New returns an LRU. Non-positive capacity or ttl take the defaults.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &LRU[K, V]{capacity: capacity, ttl: ttl}
	c.lru = expirable.NewLRU[K, V](capacity, func(K, V) { c.evictions.Add(1) }, ttl)
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add inserts or replaces key, resetting its TTL. The least recently used
// entry is evicted when the cache is full.
func (c *LRU[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	return c.lru.Remove(key)
}

// Purge drops every entry. Counters are kept.
func (c *LRU[K, V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of entries.
func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

// Stats returns the counters and the current size.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
	}
}
