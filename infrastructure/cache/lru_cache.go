package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// LRUCache is a bounded in-memory cache. The least recently used entry is
// evicted once capacity is reached; expired entries are dropped on access.
type LRUCache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	items      map[string]*list.Element
	order      *list.List
	now        func() time.Time
}

type cacheItem struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most capacity entries. A ttl of 0
// passed to Set falls back to defaultTTL.
func NewLRUCache(capacity int, defaultTTL time.Duration) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		items:      make(map[string]*list.Element, capacity),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get retrieves a value from cache
func (c *LRUCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*cacheItem)
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return item.value, true
}

// Set stores a value in cache with TTL in seconds
func (c *LRUCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lifetime := time.Duration(ttl) * time.Second
	if ttl <= 0 {
		lifetime = c.defaultTTL
	}
	var expiresAt time.Time
	if lifetime > 0 {
		expiresAt = c.now().Add(lifetime)
	}

	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.order.PushFront(&cacheItem{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
	return nil
}

// Delete removes a value from cache
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all values from cache
func (c *LRUCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache) removeElement(elem *list.Element) {
	item := c.order.Remove(elem).(*cacheItem)
	delete(c.items, item.key)
}
