package stdout

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := NewWithWriter(&buf).Send(context.Background(), &mailer.Email{
		From:    "a@b.com",
		To:      []string{"x@y.com", "z@y.com"},
		Subject: "Hi (1 attachment, total 2048 bytes)",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
		Attachments: []mailer.Attachment{
			{Filename: "report.csv", Content: make([]byte, 2048)},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "From: a@b.com\n")
	assert.Contains(t, out, "To: x@y.com, z@y.com\n")
	assert.Contains(t, out, "Body:\nHello\n")
	assert.Contains(t, out, "Attachments: report.csv (2.0 KB)")
}

func TestSender_FallsBackToHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWithWriter(&buf).Send(context.Background(), &mailer.Email{
		To:   []string{"x@y.com"},
		HTML: "<p>only html</p>",
	}))
	assert.Contains(t, buf.String(), "<p>only html</p>")
	assert.NotContains(t, buf.String(), "Attachments:")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestSender_WriteFailure(t *testing.T) {
	t.Parallel()

	err := NewWithWriter(brokenWriter{}).Send(context.Background(), &mailer.Email{To: []string{"x@y.com"}})
	require.ErrorIs(t, err, mailer.ErrSendFailed)

	err = NewWithWriter(brokenWriter{}).Send(context.Background(), &mailer.Email{})
	require.ErrorIs(t, err, mailer.ErrNoRecipient)
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
