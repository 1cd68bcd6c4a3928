package mediacache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "console:media:"
	fieldData          = "data"
	fieldContentType   = "content_type"
	clearBatch         = 100
)

// Redis is a cache tier shared by console processes of the same deployment.
// Entries expire after ttl; a non-positive ttl keeps them until evicted by
// the server's memory policy.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis parses url and verifies the server is reachable.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: defaultRedisPrefix, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (Resource, error) {
	fields, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return Resource{}, err
	}
	data, ok := fields[fieldData]
	if !ok {
		return Resource{}, ErrMiss
	}
	return Resource{Data: []byte(data), ContentType: fields[fieldContentType]}, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, key string, res Resource) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldData, res.Data, fieldContentType, res.ContentType)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	return err
}

// Clear implements Cache. Only keys under this cache's prefix are removed.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
