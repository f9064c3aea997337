package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache bounds entries both by count and by age. Touch renews an entry's
// age, which gives sliding expiry to callers that want it.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

var _ Cache[struct{}] = (*LRUCache[struct{}])(nil)

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem := c.liveLocked(key)
	if elem == nil {
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).data, true
}

// Touch extends a live entry by the cache TTL and reports whether it existed.
func (c *LRUCache[T]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem := c.liveLocked(key)
	if elem == nil {
		return false
	}
	elem.Value.(*cacheItem[T]).expiresAt = c.now().Add(c.ttl)
	c.lru.MoveToFront(elem)
	return true
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(item)
	for c.lru.Len() > c.maxSize {
		c.removeElement(c.lru.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// DeleteFunc removes every entry whose value matches and returns the count.
func (c *LRUCache[T]) DeleteFunc(match func(T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if match(elem.Value.(*cacheItem[T]).data) {
			c.removeElement(elem)
			n++
		}
		elem = next
	}
	return n
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			c.removeElement(elem)
			n++
		}
		elem = next
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) liveLocked(key string) *list.Element {
	elem, ok := c.items[key]
	if !ok {
		return nil
	}
	if c.now().After(elem.Value.(*cacheItem[T]).expiresAt) {
		c.removeElement(elem)
		return nil
	}
	return elem
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	delete(c.items, elem.Value.(*cacheItem[T]).key)
	c.lru.Remove(elem)
}
