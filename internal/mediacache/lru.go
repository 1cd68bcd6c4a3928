package mediacache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize is used when the configured entry count is not positive.
const DefaultSize = 256

// LRU is an in-process cache holding at most a fixed number of entries. The
// least recently used entry is evicted first; entries also expire after ttl
// when ttl is positive.
type LRU struct {
	entries *expirable.LRU[string, Resource]
}

var _ Cache = (*LRU)(nil)

// NewLRU creates an LRU cache.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultSize
	}
	return &LRU{entries: expirable.NewLRU[string, Resource](size, nil, ttl)}
}

// Get implements Cache.
func (c *LRU) Get(_ context.Context, key string) (Resource, error) {
	r, ok := c.entries.Get(key)
	if !ok {
		return Resource{}, ErrMiss
	}
	return r, nil
}

// Put implements Cache.
func (c *LRU) Put(_ context.Context, key string, r Resource) error {
	c.entries.Add(key, r)
	return nil
}

// Clear implements Cache.
func (c *LRU) Clear(_ context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return c.entries.Len()
}
