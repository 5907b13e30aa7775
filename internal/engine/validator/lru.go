package validator

import (
	"container/list"
	"sync"
)

// lru is a capacity-bounded least-recently-used cache. onEvict runs outside
// the lock for every entry pushed out by capacity or removed explicitly.
type lru[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	onEvict  func(K, V)
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRU[K comparable, V any](capacity int, onEvict func(K, V)) *lru[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &lru[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		onEvict:  onEvict,
	}
}

func (c *lru[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

// put inserts or replaces key. A replaced value is not passed to onEvict.
func (c *lru[K, V]) put(key K, value V) {
	var evicted *lruEntry[K, V]
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry[K, V]).value = value
		c.mu.Unlock()
		return
	}
	if c.order.Len() >= c.capacity {
		evicted = c.removeBackLocked()
	}
	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.mu.Unlock()

	if evicted != nil && c.onEvict != nil {
		c.onEvict(evicted.key, evicted.value)
	}
}

func (c *lru[K, V]) remove(key K) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	c.mu.Unlock()
	if ok && c.onEvict != nil {
		entry := el.Value.(*lruEntry[K, V])
		c.onEvict(entry.key, entry.value)
	}
}

func (c *lru[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// keys returns keys from most to least recently used.
func (c *lru[K, V]) keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*lruEntry[K, V]).key)
	}
	return out
}

// purge removes every entry, passing each to onEvict.
func (c *lru[K, V]) purge() {
	c.mu.Lock()
	var entries []*lruEntry[K, V]
	for el := c.order.Front(); el != nil; el = el.Next() {
		entries = append(entries, el.Value.(*lruEntry[K, V]))
	}
	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
	c.mu.Unlock()
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e.key, e.value)
	}
}

func (c *lru[K, V]) removeBackLocked() *lruEntry[K, V] {
	back := c.order.Back()
	if back == nil {
		return nil
	}
	c.order.Remove(back)
	entry := back.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
	return entry
}
