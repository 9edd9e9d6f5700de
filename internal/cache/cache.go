// Package cache provides a generic TTL cache with single-flight loading.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache. Expired entries are overwritten in
// place on the next Set; a janitor sweeps leftovers so unused keys do not
// accumulate.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	group   singleflight.Group
	keyFn   func(K) string

	done    chan struct{}
	closeMu sync.Once
}

// New creates a Cache whose janitor runs at the given sweep interval.
// keyFn converts keys to strings for single-flight grouping.
func New[K comparable, V any](sweepInterval time.Duration, keyFn func(K) string) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]entry[V]),
		keyFn:   keyFn,
		done:    make(chan struct{}),
	}

	go c.janitor(sweepInterval)
	return c
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Get returns the cached value for key if it has not expired.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for key, or invokes load to refresh it.
// Concurrent callers for the same stale key share a single in-flight load;
// the others block on its result rather than issuing duplicate refreshes.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(c.keyFn(key), func() (any, error) {
		// Re-check under the flight: a racing caller may have refreshed
		// the key while this one waited its turn.
		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, fresh, ttl)
		return fresh, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Len returns the number of entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor.
func (c *Cache[K, V]) Close() {
	c.closeMu.Do(func() { close(c.done) })
}
