package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements in-memory caching. Used for dry runs so that
// artifacts do not advance between real runs.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL == 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value in the cache with the given TTL
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Memo is a typed in-process lookup cache for a single run
type Memo[V any] struct {
	cache *gocache.Cache
}

// NewMemo creates an empty memo whose entries never expire
func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the memoized value for key
func (m *Memo[V]) Get(key string) (V, bool) {
	if val, found := m.cache.Get(key); found {
		return val.(V), true
	}
	var zero V
	return zero, false
}

// Set memoizes value under key
func (m *Memo[V]) Set(key string, value V) {
	m.cache.Set(key, value, gocache.NoExpiration)
}

// Len returns the number of memoized entries
func (m *Memo[V]) Len() int {
	return m.cache.ItemCount()
}
