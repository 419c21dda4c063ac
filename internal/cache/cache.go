package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a string-keyed in-process TTL cache.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string)
	Flush()
}

type ttlCache[V any] struct {
	items *gocache.Cache
}

// NewTTLCache sweeps expired entries every cleanup interval.
func NewTTLCache[V any](defaultTTL, cleanup time.Duration) Cache[V] {
	return &ttlCache[V]{items: gocache.New(defaultTTL, cleanup)}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

func (c *ttlCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
}

func (c *ttlCache[V]) Delete(key string) {
	c.items.Delete(key)
}

func (c *ttlCache[V]) Flush() {
	c.items.Flush()
}
