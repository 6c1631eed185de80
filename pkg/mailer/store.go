package mailer

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DuplicatePolicy decides what saving an existing template name does.
type DuplicatePolicy int

const (
	// Overwrite replaces the stored body.
	Overwrite DuplicatePolicy = iota
	// Reject fails with ErrTemplateExists.
	Reject
)

// ParseDuplicatePolicy accepts "overwrite" and "reject". Empty means Overwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "reject":
		return Reject, nil
	default:
		return Overwrite, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func (p DuplicatePolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "overwrite"
}

// Store persists templates by name.
type Store interface {
	// FindByName returns ErrTemplateNotFound when no template has the name.
	FindByName(ctx context.Context, name string) (Template, error)
	Save(ctx context.Context, t Template, policy DuplicatePolicy) error
}

// MemoryStore is a Store held in a map.
type MemoryStore struct {
	templates map[string]Template
	mu        sync.RWMutex
}

// NewMemoryStore returns a store seeded with templates.
func NewMemoryStore(templates ...Template) *MemoryStore {
	s := &MemoryStore{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		s.templates[t.Name] = t
	}
	return s
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t, nil
}

func (s *MemoryStore) Save(_ context.Context, t Template, policy DuplicatePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.Name]; exists && policy == Reject {
		return fmt.Errorf("%w: %s", ErrTemplateExists, t.Name)
	}
	s.templates[t.Name] = t
	return nil
}
