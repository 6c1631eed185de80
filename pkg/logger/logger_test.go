package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AttemptIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, Config{Level: "info"}, AttemptIDExtractor())

	ctx := WithAttemptID(context.Background(), "attempt-1")
	log.InfoContext(ctx, "mail delivered", slog.String("to", "a@b.co"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "attempt-1", rec["attempt_id"])
	assert.Equal(t, "a@b.co", rec["to"])
	assert.Equal(t, "mail delivered", rec["msg"])
}

func TestNew_NoAttemptID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, Config{}, AttemptIDExtractor(), nil)
	log.Info("no attempt")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "attempt_id")
}

func TestNew_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, Config{Level: "warn", Format: "text"})
	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := fanout{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	log := slog.New(h).With("svc", "postoffice")

	log.Info("only a")
	assert.Contains(t, a.String(), "only a")
	assert.Empty(t, b.String())

	log.Error("both")
	assert.Contains(t, b.String(), `"svc":"postoffice"`)
}
