// Package stdout prints mail instead of delivering it. Use it in development.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// Sender writes each email to a writer in a readable block.
type Sender struct {
	w  io.Writer
	mu sync.Mutex
}

// New creates a Sender writing to os.Stdout.
func New() *Sender { return NewWithWriter(os.Stdout) }

// NewWithWriter creates a Sender writing to w.
func NewWithWriter(w io.Writer) *Sender { return &Sender{w: w} }

func (s *Sender) Send(_ context.Context, email *mailer.Email) error {
	if len(email.To) == 0 {
		return mailer.ErrNoRecipient
	}

	var b strings.Builder
	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", email.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)

	body := email.Text
	if body == "" {
		body = email.HTML
	}
	fmt.Fprintf(&b, "Body:\n%s\n", body)

	if len(email.Attachments) > 0 {
		names := make([]string, 0, len(email.Attachments))
		for _, a := range email.Attachments {
			names = append(names, fmt.Sprintf("%s (%s)", a.Filename, formatSize(len(a.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("========================================\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("stdout: %w: %w", mailer.ErrSendFailed, err)
	}
	return nil
}

func formatSize(n int) string {
	const kb, mb = 1024, 1024 * 1024
	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
