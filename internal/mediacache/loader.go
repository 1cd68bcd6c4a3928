package mediacache

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// Fetcher downloads media from the backend.
type Fetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Loader returns media from the first cache tier that has it, fetching and
// storing it in every tier on a miss. Concurrent loads of the same key share
// one download.
type Loader struct {
	fetcher Fetcher
	tiers   []Cache
	logger  *logger.Logger
	group   singleflight.Group
}

// NewLoader creates a loader. Tiers are consulted in order.
func NewLoader(fetcher Fetcher, log *logger.Logger, tiers ...Cache) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{fetcher: fetcher, tiers: tiers, logger: log}
}

// Key scopes a media id to a business.
func Key(businessID, mediaID string) string {
	return businessID + "/" + mediaID
}

// Load returns the media with the given id for businessID.
func (l *Loader) Load(ctx context.Context, businessID, mediaID string) (Resource, error) {
	key := Key(businessID, mediaID)

	for i, tier := range l.tiers {
		r, err := tier.Get(ctx, key)
		if err == nil {
			metrics.MediaCacheLookups.WithLabelValues("hit").Inc()
			l.backfill(ctx, key, r, i)
			return r, nil
		}
		if !errors.Is(err, ErrMiss) {
			l.logger.Warn("media cache lookup failed", zap.String("key", key), zap.Error(err))
		}
	}
	metrics.MediaCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := l.group.Do(key, func() (any, error) {
		data, contentType, err := l.fetcher.FetchMedia(ctx, mediaID)
		if err != nil {
			return Resource{}, err
		}
		r := Resource{Data: data, ContentType: contentType}
		l.backfill(ctx, key, r, len(l.tiers))
		return r, nil
	})
	if err != nil {
		return Resource{}, err
	}
	return v.(Resource), nil
}

// Clear empties every tier, e.g. on a business switch.
func (l *Loader) Clear(ctx context.Context) error {
	var errs []error
	for _, tier := range l.tiers {
		if err := tier.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// backfill stores r in the tiers before index upto.
func (l *Loader) backfill(ctx context.Context, key string, r Resource, upto int) {
	for _, tier := range l.tiers[:upto] {
		if err := tier.Put(ctx, key, r); err != nil {
			l.logger.Warn("media cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
}
