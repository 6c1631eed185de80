package mailer

import (
	"context"
	"time"

	"github.com/dmitrymomot/postoffice/pkg/cache"
)

// CachedStore reads through a cache in front of another Store. Misses for
// the same name are collapsed into one lookup. Not-found results are not cached.
type CachedStore struct {
	next  Store
	cache cache.Cache[Template]
	ttl   time.Duration
}

// NewCachedStore wraps next. A non-positive ttl uses the cache default.
func NewCachedStore(next Store, c cache.Cache[Template], ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, cache: c, ttl: max(ttl, 0)}
}

func (s *CachedStore) FindByName(ctx context.Context, name string) (Template, error) {
	return cache.GetOrSet(ctx, s.cache, name, func(ctx context.Context) (Template, time.Duration, error) {
		t, err := s.next.FindByName(ctx, name)
		return t, s.ttl, err
	})
}

// Save writes to the underlying store and evicts the cached copy.
func (s *CachedStore) Save(ctx context.Context, t Template, policy DuplicatePolicy) error {
	if err := s.next.Save(ctx, t, policy); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, t.Name)
	return nil
}
