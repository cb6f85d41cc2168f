package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a size-bounded, concurrency-safe map that drops the least recently
// used entry once it grows past its capacity.
//
// The evict callback runs for every entry that leaves the cache, whether by
// capacity, Remove, RemoveIf or Purge. It runs after the internal lock is
// released, so it may block or call back into the cache.
type LRU[K comparable, V any] struct {
	capacity int
	onEvict  func(key K, value V)

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // front is most recently used
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithEvictCallback registers fn to release resources held by evicted values.
func WithEvictCallback[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// NewLRU creates a cache holding at most capacity entries.
// Panics if capacity is not positive.
func NewLRU[K comparable, V any](capacity int, opts ...Option[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	c := &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value of key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Peek returns the value of key without touching its recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key. Replacing an existing value does not run the
// evict callback; the caller owns the previous value, which is returned.
func (c *LRU[K, V]) Put(key K, value V) (previous V, replaced bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		e := el.Value.(*entry[K, V])
		previous, e.value = e.value, value
		c.mu.Unlock()
		return previous, true
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	var evicted []*entry[K, V]
	for c.order.Len() > c.capacity {
		evicted = append(evicted, c.removeLocked(c.order.Back()))
	}
	c.mu.Unlock()

	c.evict(evicted...)
	return previous, false
}

// Remove deletes key and returns the value it held.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	return c.RemoveIf(key, nil)
}

// RemoveIf deletes key only when match reports true for its current value.
// A nil match always matches.
func (c *LRU[K, V]) RemoveIf(key K, match func(V) bool) (V, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok || (match != nil && !match(el.Value.(*entry[K, V]).value)) {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	e := c.removeLocked(el)
	c.mu.Unlock()

	c.evict(e)
	return e.value, true
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge removes every entry, least recently used first.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	all := make([]*entry[K, V], 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		all = append(all, el.Value.(*entry[K, V]))
	}
	clear(c.items)
	c.order.Init()
	c.mu.Unlock()

	c.evict(all...)
}

// Must be called with c.mu held.
func (c *LRU[K, V]) removeLocked(el *list.Element) *entry[K, V] {
	c.order.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	return e
}

func (c *LRU[K, V]) evict(entries ...*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e.key, e.value)
	}
}
