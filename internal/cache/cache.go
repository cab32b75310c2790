// Package cache provides a bounded in-memory key-value cache with TTL expiry.
//
// Eviction follows insertion order, not recency: inserting a new key into a
// full cache drops the entry that was inserted first, no matter how often it
// was read since. Reads never reorder entries. Callers that need true LRU
// semantics should not use this package.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for the cache counter.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultEvict  = "evict"
	resultExpire = "expire"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	counter *prometheus.CounterVec
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCounter reports hits, misses, evictions and expirations to a counter vec
// with labels ("cache", "result").
func WithCounter(c *prometheus.CounterVec) Option {
	return func(o *options) { o.counter = c }
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Cache is a bounded TTL cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	name    string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	counter *prometheus.CounterVec

	mu      sync.RWMutex
	entries map[K]*list.Element
	order   *list.List // front = first inserted

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most maxSize live entries, each valid for ttl.
// name is used only as a metrics label. A maxSize below 1 is raised to 1.
func New[K comparable, V any](name string, maxSize int, ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[K, V]{
		name:    name,
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
		counter: o.counter,
		entries: make(map[K]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Name returns the cache name.
func (c *Cache[K, V]) Name() string { return c.name }

// Get returns the value stored under key. An entry whose age reached the TTL
// is removed and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.RLock()
	el, found := c.entries[key]
	if found {
		e := el.Value.(*entry[K, V])
		if !c.expired(e, now) {
			v := e.value
			c.mu.RUnlock()
			c.hits.Add(1)
			c.inc(resultHit)
			return v, true
		}
	}
	c.mu.RUnlock()

	if found {
		c.removeIfExpired(key, now)
	}

	c.misses.Add(1)
	c.inc(resultMiss)
	var zero V
	return zero, false
}

// Put stores value under key. Re-putting an existing key refreshes its value
// and timestamp in place and keeps its insertion position. Inserting a new key
// into a full cache first evicts the oldest inserted entry.
func (c *Cache[K, V]) Put(key K, value V) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = now
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldestLocked()
	}

	el := c.order.PushBack(&entry[K, V]{key: key, value: value, storedAt: now})
	c.entries[key] = el
}

// Sweep removes every entry whose age reached the TTL and returns how many
// were removed.
func (c *Cache[K, V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[K, V])
		if c.expired(e, now) {
			c.order.Remove(el)
			delete(c.entries, e.key)
			removed++
		}
		el = next
	}
	if removed > 0 && c.counter != nil {
		c.counter.WithLabelValues(c.name, resultExpire).Add(float64(removed))
	}
	return removed
}

// Run sweeps the cache every interval until ctx is cancelled.
func (c *Cache[K, V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len returns the number of resident entries, expired ones included until
// they are read or swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Clear drops all entries and resets the counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element, c.maxSize)
	c.order.Init()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Stats returns a snapshot of size and counters.
func (c *Cache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      c.Len(),
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

// removeIfExpired re-checks under the write lock: a concurrent Put may have
// refreshed the entry since the read lock was released.
func (c *Cache[K, V]) removeIfExpired(key K, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return
	}
	if c.expired(el.Value.(*entry[K, V]), now) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.inc(resultExpire)
	}
}

func (c *Cache[K, V]) evictOldestLocked() {
	el := c.order.Front()
	if el == nil {
		return
	}
	e := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.evictions.Add(1)
	c.inc(resultEvict)
}

func (c *Cache[K, V]) inc(result string) {
	if c.counter != nil {
		c.counter.WithLabelValues(c.name, result).Inc()
	}
}
