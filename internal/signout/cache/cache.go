// Package cache is the single bounded-staleness cache used for ledger
// views and the staff roster.  Entries expire after a per-call TTL and can
// be invalidated explicitly; concurrent refreshes of one key share a
// single load.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a fresh value for a key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache maps string keys to values of type V.  The zero value is not
// usable; call New.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	// gen is bumped on every invalidation so a load that started before
	// the invalidation neither populates the cache nor is joined by
	// callers arriving after it.
	gen   map[string]uint64
	epoch uint64
	group singleflight.Group

	now func() time.Time
}

func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		gen:     make(map[string]uint64),
		now:     time.Now,
	}
}

// WithClock replaces the time source.  Tests only.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

// GetOrRefresh returns the cached value for key if it is younger than ttl,
// otherwise calls load and caches its result.  Errors are never cached.
// A ttl <= 0 always loads.
func (c *Cache[V]) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, load LoadFunc[V]) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && ttl > 0 && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value, nil
	}
	gen, epoch := c.gen[key], c.epoch
	c.mu.Unlock()

	flight := key + "#" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return val, err
		}
		c.mu.Lock()
		if c.gen[key] == gen && c.epoch == epoch && ttl > 0 {
			c.entries[key] = entry[V]{value: val, expires: c.now().Add(ttl)}
		}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate drops key so the next GetOrRefresh loads fresh data.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gen[key]++
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.epoch++
}
