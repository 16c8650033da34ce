package links

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

const defaultMemoryCacheSize = 10000

// Cache stores short URL to destination mappings.
type Cache interface {
	Get(ctx context.Context, shortURL string) (string, error)
	Set(ctx context.Context, shortURL, resolved string, ttl time.Duration) error
}

// MemoryCache is a thread-safe LRU cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultMemoryCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns errors.ErrCacheNotFound for missing or expired entries.
func (c *MemoryCache) Get(_ context.Context, shortURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[shortURL]
	if !ok {
		return "", errors.ErrCacheNotFound
	}

	entry := elem.Value.(*memoryEntry) //nolint:forcetypeassert // list only holds *memoryEntry
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.items, shortURL)

		return "", errors.ErrCacheNotFound
	}

	c.order.MoveToFront(elem)

	return entry.value, nil
}

// Set stores resolved for shortURL. A non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, shortURL, resolved string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.items[shortURL]; ok {
		entry := elem.Value.(*memoryEntry) //nolint:forcetypeassert // list only holds *memoryEntry
		entry.value = resolved
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return nil
	}

	c.items[shortURL] = c.order.PushFront(&memoryEntry{key: shortURL, value: resolved, expiresAt: expiresAt})

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key) //nolint:forcetypeassert // list only holds *memoryEntry
	}

	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
