package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of the context for each record.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type attemptIDKey struct{}

// WithAttemptID stores the delivery attempt ID in ctx.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey{}, id)
}

// AttemptID returns the attempt ID stored by WithAttemptID.
func AttemptID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(attemptIDKey{}).(string)
	return id, ok && id != ""
}

// AttemptIDExtractor adds attempt_id to records logged with an attempt context.
func AttemptIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := AttemptID(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("attempt_id", id), true
	}
}

// contextHandler evaluates extractors on every Handle call.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func newContextHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &contextHandler{next: next, extractors: clean}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
