package cache

import (
	"container/list"
	"sync"
	"time"
)

// Options configures an LRUCache.
type Options[T any] struct {
	MaxSize int
	TTL     time.Duration
	// Sliding pushes the expiry forward on every successful Get.
	Sliding bool
	// OnEvict runs after an entry leaves the cache for any reason other
	// than an explicit Delete. It is called without the cache lock held.
	OnEvict func(key string, value T)
}

// LRUCache is an LRU cache with TTL and size-based eviction.
type LRUCache[T any] struct {
	mu    sync.Mutex
	opts  Options[T]
	items map[string]*list.Element
	lru   *list.List
	now   func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

var _ Cache[int] = (*LRUCache[int])(nil)

func NewLRUCache[T any](opts Options[T]) *LRUCache[T] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &LRUCache[T]{
		opts:  opts,
		items: make(map[string]*list.Element),
		lru:   list.New(),
		now:   time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	now := c.now()
	if now.After(item.expiresAt) {
		c.removeElement(elem)
		evicted = append(evicted, item)
		return zero, false
	}

	if c.opts.Sliding {
		item.expiresAt = now.Add(c.opts.TTL)
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.opts.TTL),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)

	for c.lru.Len() > c.opts.MaxSize {
		oldest := c.lru.Back()
		evicted = append(evicted, oldest.Value.(*cacheItem[T]))
		c.removeElement(oldest)
	}
}

// Delete removes key without calling OnEvict. It reports whether the key
// was present and unexpired.
func (c *LRUCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return false
	}
	live := !c.now().After(elem.Value.(*cacheItem[T]).expiresAt)
	c.removeElement(elem)
	return live
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			c.removeElement(elem)
			evicted = append(evicted, item)
		}
		elem = next
	}
	return len(evicted)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Range calls fn for every unexpired entry, most recently used first.
// fn must not call back into the cache.
func (c *LRUCache[T]) Range(fn func(key string, value T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			continue
		}
		if !fn(item.key, item.data) {
			return
		}
	}
}

func (c *LRUCache[T]) notify(items []*cacheItem[T]) {
	if c.opts.OnEvict == nil {
		return
	}
	for _, item := range items {
		c.opts.OnEvict(item.key, item.data)
	}
}
