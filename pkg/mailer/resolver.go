package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Resolver turns template names into compiled templates.
type Resolver struct {
	store    Store
	compiled map[string]*Compiled // by name; stale when the digest differs
	mu       sync.RWMutex
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, compiled: make(map[string]*Compiled)}
}

// Resolve looks name up and compiles it. A blank name fails before any lookup.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Compiled, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrBlankTemplateName
	}

	t, err := r.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	digest := t.Digest()
	r.mu.RLock()
	c, ok := r.compiled[name]
	r.mu.RUnlock()
	if ok && c.digest == digest {
		return c, nil
	}

	c, err = Compile(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.compiled[name] = c
	r.mu.Unlock()
	return c, nil
}

// Invalidate drops compiled forms for names.
func (r *Resolver) Invalidate(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.compiled, n)
	}
}
