package cache

import (
	"sync"
	"time"
)

// Cache provides a minimal TTL cache interface for hot-path lookups.
// A zero TTL entry never expires, which is how construct-once handles
// (the payment SDK client per publishable key) are held.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	GetOrSet(key K, ttl time.Duration, build func() V) V
	Delete(key K)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in-memory with per-entry TTLs.
type TTLCache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]entry[V]
}

// NewTTLCache constructs a new TTLCache instance.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{items: make(map[K]entry[V])}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the provided TTL. Zero TTL entries never expire.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: expiry(ttl)}
	c.mu.Unlock()
}

// GetOrSet returns the cached value for key, building and storing it exactly
// once if absent. Concurrent callers observe a single build.
func (c *TTLCache[K, V]) GetOrSet(key K, ttl time.Duration, build func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if ok && (e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)) {
		return e.value
	}
	value := build()
	c.items[key] = entry[V]{value: value, expiresAt: expiry(ttl)}
	return value
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// NoopCache always returns cache misses and ignores writes.
type NoopCache[K comparable, V any] struct{}

// Get always returns a miss.
func (NoopCache[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

// Set is a no-op.
func (NoopCache[K, V]) Set(key K, value V, ttl time.Duration) {}

// GetOrSet builds a fresh value on every call.
func (NoopCache[K, V]) GetOrSet(key K, ttl time.Duration, build func() V) V {
	return build()
}

// Delete is a no-op.
func (NoopCache[K, V]) Delete(key K) {}
