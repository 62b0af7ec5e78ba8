package dashboard

import (
	"sync"
	"time"
)

// Cache is a keyed fetch-with-max-staleness store. Entries older than the
// configured max age are treated as absent. The clock is injectable for
// tests.
type Cache[V any] struct {
	mu     sync.Mutex
	maxAge time.Duration
	nowFn  func() time.Time
	items  map[string]entry[V]
}

type entry[V any] struct {
	value  V
	stored time.Time
}

func NewCache[V any](maxAge time.Duration) *Cache[V] {
	return &Cache[V]{
		maxAge: maxAge,
		nowFn:  time.Now,
		items:  make(map[string]entry[V]),
	}
}

// SetClock replaces the cache clock. Passing nil is a no-op.
func (c *Cache[V]) SetClock(fn func() time.Time) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.nowFn = fn
	c.mu.Unlock()
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || c.nowFn().Sub(e.stored) > c.maxAge {
		var zero V
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, stored: c.nowFn()}
	c.mu.Unlock()
}

// Invalidate drops one key; used after a write that changes the projection.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
