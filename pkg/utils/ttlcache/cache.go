// Package ttlcache provides a generic key-value store in which every entry
// expires on its own timer.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64
}

// Cache is a concurrent-safe map whose entries are removed proactively when
// their TTL elapses. Writing a key again replaces the value and restarts its
// timer.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	gen     uint64
	closed  bool
	onEvict func(key K, value V)
}

// Option configures a Cache
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvictionHook registers fn to be called after an entry expires. It is
// not called for Delete or for entries replaced by Set.
func WithEvictionHook[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates an empty Cache
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and whether it was present
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A pending expiry for the same key is
// cancelled; a non-positive ttl stores nothing and removes the key.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
		delete(c.entries, key)
	}
	if ttl <= 0 {
		return
	}

	c.gen++
	gen := c.gen
	e := &entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
		gen:       gen,
	}
	e.timer = time.AfterFunc(ttl, func() { c.expire(key, gen) })
	c.entries[key] = e
}

// expire removes key only if it still holds the generation that scheduled
// this timer. A timer that already fired before Stop could cancel it would
// otherwise delete a newer value.
func (c *Cache[K, V]) expire(key K, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	hook := c.onEvict
	c.mu.Unlock()

	if hook != nil {
		hook(key, e.value)
	}
}

// Delete removes key and cancels its timer
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

// ExpiresAt returns when key is scheduled to expire
func (c *Cache[K, V]) ExpiresAt(key K) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Len returns the number of live entries
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Range calls fn for a snapshot of the live entries
func (c *Cache[K, V]) Range(fn func(key K, value V) bool) {
	c.mu.Lock()
	snapshot := make(map[K]V, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = e.value
	}
	c.mu.Unlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// Close stops every pending timer and drops all entries. Set is a no-op
// after Close.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, k)
	}
	c.closed = true
}
