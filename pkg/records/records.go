// Package records defines the append-only audit log of send attempts.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("records: not found")

// Record is the outcome of one send attempt.
type Record struct {
	ID                 uuid.UUID       `json:"id"`
	AttemptID          uuid.UUID       `json:"attempt_id"`
	FromAddress        string          `json:"from_address"`
	FromName           string          `json:"from_name"`
	ToAddress          string          `json:"to_address"`
	Title              string          `json:"title"`
	TemplateName       string          `json:"template_name"`
	TemplateParameters json.RawMessage `json:"template_parameters"`
	IsSuccess          bool            `json:"is_success"`
	FailureReason      string          `json:"failure_reason,omitempty"`
	FailureDetail      string          `json:"failure_detail,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Store appends records. Implementations never update or delete.
type Store interface {
	Append(ctx context.Context, r Record) error
}

// Reader queries stored records.
type Reader interface {
	ByAttempt(ctx context.Context, attemptID uuid.UUID) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	ToAddress string
	Success   *bool
	Limit     int
}

func (f Filter) match(r Record) bool {
	if f.ToAddress != "" && r.ToAddress != f.ToAddress {
		return false
	}
	if f.Success != nil && r.IsSuccess != *f.Success {
		return false
	}
	return true
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	records []Record
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

// ByAttempt returns the record written for an attempt.
func (s *MemoryStore) ByAttempt(_ context.Context, attemptID uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.AttemptID == attemptID {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// List returns matching records, newest first.
func (s *MemoryStore) List(_ context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range slices.Backward(s.records) {
		if !f.match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Reader = (*MemoryStore)(nil)
)

// All returns every record in append order.
func (s *MemoryStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}
