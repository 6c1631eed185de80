package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value store with per-entry expiration.
type Cache[V any] interface {
	// Get returns ErrNotFound when the key is missing or expired.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// NoExpiry stores an entry until it is deleted. Zero TTL means the cache default.
const NoExpiry time.Duration = -1

// Loader computes a value on a cache miss together with the TTL to store it under.
type Loader[V any] func(ctx context.Context) (V, time.Duration, error)

var loads singleflight.Group

type loaded[V any] struct {
	val V
	ttl time.Duration
}

// GetOrSet returns the cached value for key or calls load on a miss.
// Concurrent misses for the same key share one load call. Loader errors are
// returned as is and nothing is cached; a failed write-back is ignored.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, load Loader[V]) (V, error) {
	// Any read error, not only ErrNotFound, falls through to the loader.
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	// Flight keys carry the value type: caches of different V may share key names.
	var zero V
	res, err, _ := loads.Do(fmt.Sprintf("%T|%s", zero, key), func() (any, error) {
		v, ttl, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return loaded[V]{val: v, ttl: ttl}, nil
	})
	if err != nil {
		return zero, err
	}

	l := res.(loaded[V])
	_ = c.Set(ctx, key, l.val, l.ttl)
	return l.val, nil
}
