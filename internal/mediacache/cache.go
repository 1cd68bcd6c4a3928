// Package mediacache keeps downloaded media attachments so a thread can be
// re-rendered without fetching them again. Caches are bounded and can be
// cleared when the agent switches business.
package mediacache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("mediacache: miss")

// Resource is one cached attachment.
type Resource struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// Size returns the payload size in bytes.
func (r Resource) Size() int {
	return len(r.Data)
}

// Cache is a concurrency-safe media store.
type Cache interface {
	// Get returns the resource stored at key, or ErrMiss.
	Get(ctx context.Context, key string) (Resource, error)
	// Put stores r at key, evicting older entries if the cache is full.
	Put(ctx context.Context, key string, r Resource) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
