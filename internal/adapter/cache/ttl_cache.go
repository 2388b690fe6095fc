package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is a generic get-or-compute store with absolute-expiry entries.
// One instance exists per value kind (classified queries, search results);
// the kind prefixes every key so distinct caches never collide.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	kind    string
	ttl     time.Duration
	maxSize int
	log     *zap.SugaredLogger
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// New creates a cache for one kind of value.
func New[T any](kind string, ttl time.Duration, maxSize int, log *zap.SugaredLogger) *Cache[T] {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		kind:    kind,
		ttl:     ttl,
		maxSize: maxSize,
		log:     log,
	}
}

func (c *Cache[T]) key(raw string) string {
	return c.kind + ":" + strings.ToLower(strings.TrimSpace(raw))
}

// GetOrCompute returns the cached value for key when a non-expired entry
// exists; otherwise it invokes compute, caches the result and returns it.
// A failed compute propagates to the caller and is never cached. The lock
// is released around compute, so two concurrent misses on the same key may
// both compute; the design tolerates duplicate work over per-key blocking.
func (c *Cache[T]) GetOrCompute(rawKey string, compute func() (T, error)) (T, error) {
	key := c.key(rawKey)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		c.log.Debugw("cache hit", "kind", c.kind, "key", rawKey)
		return e.value, nil
	}
	c.mu.Unlock()

	c.log.Debugw("cache miss", "kind", c.kind, "key", rawKey)

	value, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.cleanupLocked()
	c.entries[key] = entry[T]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return value, nil
}

// cleanupLocked enforces the size bound before an insert: expired entries go
// first; if the cache is still at or above the maximum, the 25% of entries
// with the soonest expiry are dropped.
func (c *Cache[T]) cleanupLocked() {
	if len(c.entries) < c.maxSize {
		return
	}

	now := time.Now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	if len(c.entries) < c.maxSize {
		return
	}

	type expiring struct {
		key       string
		expiresAt time.Time
	}
	byExpiry := make([]expiring, 0, len(c.entries))
	for k, e := range c.entries {
		byExpiry = append(byExpiry, expiring{k, e.expiresAt})
	}
	sort.Slice(byExpiry, func(i, j int) bool {
		return byExpiry[i].expiresAt.Before(byExpiry[j].expiresAt)
	})

	for _, e := range byExpiry[:c.maxSize/4] {
		delete(c.entries, e.key)
	}

	c.log.Infow("cache cleanup performed", "kind", c.kind, "remaining", len(c.entries))
}

// Invalidate clears the cache.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
	c.log.Infow("cache invalidated", "kind", c.kind)
}

// Size returns the number of entries, expired included.
func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ValidCount returns the number of non-expired entries.
func (c *Cache[T]) ValidCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var n int64
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
