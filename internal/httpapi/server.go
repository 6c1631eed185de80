// Package httpapi exposes the post office over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/postoffice"
	"github.com/dmitrymomot/postoffice/pkg/health"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/records"
)

const defaultMaxBodyBytes = 1 << 20

// Mailer is the part of postoffice.PostOffice the API drives.
type Mailer interface {
	Send(ctx context.Context, reqs []postoffice.SendRequest) []postoffice.Outcome
	CreateTemplates(ctx context.Context, reqs []postoffice.CreateTemplateRequest) error
}

// DomainBlocker manages the recipient domain blocklist.
type DomainBlocker interface {
	BlockDomain(ctx context.Context, domain string) error
	UnblockDomain(ctx context.Context, domain string) error
}

// handlerFunc is a route handler; a returned error is rendered by handleError.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Server routes API requests.
type Server struct {
	mailer        Mailer
	records       records.Reader
	blocker       DomainBlocker
	checks        health.Checks
	logger        *slog.Logger
	healthTimeout time.Duration
	maxBodyBytes  int64
}

// Option configures a Server.
type Option func(*Server)

// WithRecords enables the record lookup endpoints.
func WithRecords(r records.Reader) Option {
	return func(s *Server) {
		s.records = r
	}
}

// WithBlocklist enables the blocklist endpoints.
func WithBlocklist(b DomainBlocker) Option {
	return func(s *Server) {
		s.blocker = b
	}
}

// WithReadinessCheck adds a named check to /health/ready.
func WithReadinessCheck(name string, fn health.CheckFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.checks[name] = fn
		}
	}
}

// WithHealthTimeout bounds the readiness checks. Defaults to 5 seconds.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.healthTimeout = d
		}
	}
}

// WithMaxBodyBytes limits request bodies. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server for m.
func New(m Mailer, opts ...Option) *Server {
	s := &Server{
		mailer:        m,
		checks:        health.Checks{},
		logger:        logger.NewNope(),
		healthTimeout: 5 * time.Second,
		maxBodyBytes:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.checks, s.healthTimeout, s.logger))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/mails", s.wrap(s.sendMails))
		r.Post("/templates", s.wrap(s.createTemplates))

		if s.records != nil {
			r.Get("/records", s.wrap(s.listRecords))
			r.Get("/records/{attemptID}", s.wrap(s.getRecord))
		}
		if s.blocker != nil {
			r.Put("/blocklist/domains/{domain}", s.wrap(s.blockDomain))
			r.Delete("/blocklist/domains/{domain}", s.wrap(s.unblockDomain))
		}
	})

	r.NotFound(s.wrap(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusNotFound, "not_found", "resource not found", nil)
	}))
	r.MethodNotAllowed(s.wrap(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	}))

	return r
}

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.handleError(w, r, err)
		}
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var he *HTTPError
	if !errors.As(err, &he) {
		he = newHTTPError(http.StatusInternalServerError, "internal", "internal server error", err)
	}

	level := slog.LevelWarn
	if he.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", he.Status),
		slog.Any("error", err),
	)

	_ = writeJSON(w, he.Status, errorResponse{
		Error:     he.Message,
		Code:      he.Code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return newHTTPError(http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return badRequest("invalid_json", "request body is not valid JSON", errors.Join(errInvalidJSON, err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// RequestIDExtractor adds the chi request ID to log records.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id := middleware.GetReqID(ctx)
		if id == "" {
			return slog.Attr{}, false
		}
		return slog.String("request_id", id), true
	}
}
