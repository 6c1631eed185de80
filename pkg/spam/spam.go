// Package spam keeps the recipient blocklist: blocked domains and addresses
// whose last delivery failed recently. It implements address.Blocklist.
package spam

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/cache"
	"github.com/dmitrymomot/postoffice/pkg/logger"
)

const DefaultFailureTTL = time.Hour

var ErrEmptyDomain = errors.New("spam: empty domain")

// Service stores blocklist flags in a cache.Cache[bool].
type Service struct {
	flags      cache.Cache[bool]
	failureTTL time.Duration
	log        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFailureTTL sets how long a delivery failure keeps blocking its address.
func WithFailureTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.failureTTL = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Service on top of flags.
func New(flags cache.Cache[bool], opts ...Option) *Service {
	s := &Service{
		flags:      flags,
		failureTTL: DefaultFailureTTL,
		log:        logger.NewNope(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BlockDomain blocks every recipient on domain until UnblockDomain.
func (s *Service) BlockDomain(ctx context.Context, domain string) error {
	domain = normalizeDomain(domain)
	if domain == "" {
		return ErrEmptyDomain
	}
	return s.flags.Set(ctx, domainKey(domain), true, cache.NoExpiry)
}

// UnblockDomain lifts a domain block.
func (s *Service) UnblockDomain(ctx context.Context, domain string) error {
	domain = normalizeDomain(domain)
	if domain == "" {
		return ErrEmptyDomain
	}
	return s.flags.Delete(ctx, domainKey(domain))
}

// IsDomainBlocked reports whether the domain of addr is blocked.
func (s *Service) IsDomainBlocked(ctx context.Context, addr string) (bool, error) {
	domain := address.Domain(addr)
	if domain == "" {
		return false, nil
	}
	return s.flags.Has(ctx, domainKey(domain))
}

// MarkFailure blocks addr for the failure TTL.
func (s *Service) MarkFailure(ctx context.Context, addr string) error {
	key := failureKey(addr)
	if err := s.flags.Set(ctx, key, true, s.failureTTL); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "recipient marked as failed",
		slog.String("to", addr),
		slog.Duration("ttl", s.failureTTL))
	return nil
}

// HasRecentFailure reports whether a delivery to addr failed within the TTL.
func (s *Service) HasRecentFailure(ctx context.Context, addr string) (bool, error) {
	return s.flags.Has(ctx, failureKey(addr))
}

// ClearFailure removes a failure mark before it expires.
func (s *Service) ClearFailure(ctx context.Context, addr string) error {
	return s.flags.Delete(ctx, failureKey(addr))
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(domain, "@")))
}

func domainKey(domain string) string { return "domain:" + domain }

// Failure marks key on the normalized address so case in the domain does not
// matter. Unparseable addresses fall back to their trimmed form.
func failureKey(addr string) string {
	if norm, err := address.Parse(addr); err == nil {
		return "failure:" + norm
	}
	return "failure:" + strings.TrimSpace(addr)
}

var _ address.Blocklist = (*Service)(nil)
