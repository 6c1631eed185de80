// Package resend delivers mail through the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

var ErrMissingAPIKey = errors.New("resend: missing API key")

// Emailer is the slice of the Resend client the sender calls.
type Emailer interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender implements mailer.Sender.
type Sender struct {
	emails Emailer
}

// New creates a Sender with the official client.
func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Sender{emails: resend.NewClient(cfg.APIKey).Emails}, nil
}

// NewWithClient creates a Sender around a custom Emailer.
func NewWithClient(emails Emailer) *Sender {
	return &Sender{emails: emails}
}

func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if len(email.To) == 0 {
		return mailer.ErrNoRecipient
	}

	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		Headers: email.Headers,
	}
	for _, a := range email.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}
	for name, value := range email.Tags {
		req.Tags = append(req.Tags, resend.Tag{Name: tagSafe(name), Value: tagSafe(value)})
	}

	if _, err := s.emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w: %w", mailer.ErrSendFailed, err)
	}
	return nil
}

var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// tagSafe maps a value onto the character set Resend accepts for tags.
func tagSafe(s string) string {
	return tagUnsafe.ReplaceAllString(s, "_")
}
