package common

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	CacheKeyBlogs = "blogs:all"
	CacheKeyUsers = "users:all"
)

// Cache is a go-cache instance plus a per-key generation that Invalidate bumps.
// Readers that fill the cache after a store read use Generation and SetIfUnchanged
// so a read that overlapped a write cannot put the old value back.
type Cache struct {
	*cache.Cache

	mu    sync.Mutex
	gens  map[string]uint64
	flush uint64
}

func NewCache(expirationTime, cleanupTime time.Duration) *Cache {
	return &Cache{
		Cache: cache.New(expirationTime, cleanupTime),
		gens:  make(map[string]uint64),
	}
}

func (c *Cache) Set(key string, value interface{}, expiration ...time.Duration) {
	if len(expiration) > 0 {
		c.Cache.Set(key, value, expiration[0])
		return
	}
	c.Cache.Set(key, value, cache.DefaultExpiration)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

// Generation returns the current generation of key. Take it before reading the store.
func (c *Cache) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.flush + c.gens[key]
}

// SetIfUnchanged stores value only if key has not been invalidated since gen was taken.
func (c *Cache) SetIfUnchanged(key string, value interface{}, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flush+c.gens[key] != gen {
		return false
	}

	c.Cache.Set(key, value, cache.DefaultExpiration)

	return true
}

// Invalidate drops the given keys. Writers call it after every successful mutation.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.gens[key]++
		c.Cache.Delete(key)
	}
}

func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flush++
	c.Cache.Flush()
}
