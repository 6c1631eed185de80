package resend

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

type fakeEmails struct {
	last *resend.SendEmailRequest
	err  error
}

func (f *fakeEmails) SendWithContext(_ context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "msg_1"}, nil
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	fake := &fakeEmails{}
	s := NewWithClient(fake)

	err := s.Send(context.Background(), &mailer.Email{
		From:    `"Billing" <billing@example.com>`,
		To:      []string{"user@example.com"},
		Subject: "Invoice (1 attachment, total 3 bytes)",
		HTML:    "<p>Hi</p>",
		Text:    "Hi",
		Tags:    map[string]string{"template": "invoice.v2"},
		Attachments: []mailer.Attachment{
			{Filename: "a.pdf", ContentType: "application/pdf", Content: []byte("pdf")},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, fake.last)
	assert.Equal(t, `"Billing" <billing@example.com>`, fake.last.From)
	assert.Equal(t, []string{"user@example.com"}, fake.last.To)
	assert.Equal(t, "Hi", fake.last.Text)
	require.Len(t, fake.last.Attachments, 1)
	assert.Equal(t, "a.pdf", fake.last.Attachments[0].Filename)
	assert.Equal(t, []resend.Tag{{Name: "template", Value: "invoice_v2"}}, fake.last.Tags)
}

func TestSender_Send_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	s := NewWithClient(&fakeEmails{err: boom})

	err := s.Send(context.Background(), &mailer.Email{To: []string{"a@b.co"}})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, mailer.ErrSendFailed)

	err = s.Send(context.Background(), &mailer.Email{})
	require.ErrorIs(t, err, mailer.ErrNoRecipient)

	_, err = New(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
