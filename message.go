package postoffice

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// Message is a validated, rendered message ready to send.
// It is built only by Builder and never changes afterwards.
type Message struct {
	from        string
	fromName    string
	to          string
	subject     string
	html        string
	text        string
	template    string
	attachments []attachment.Resolved
	delay       time.Duration
}

// From returns the validated sender address.
func (m *Message) From() string { return m.from }

// FromName returns the sender display name.
func (m *Message) FromName() string { return m.fromName }

// To returns the normalized recipient address.
func (m *Message) To() string { return m.to }

// Subject returns the title with the attachment suffix appended.
func (m *Message) Subject() string { return m.subject }

// HTML returns the rendered body.
func (m *Message) HTML() string { return m.html }

// Text returns the plain-text alternative derived from the HTML body.
func (m *Message) Text() string { return m.text }

// Template returns the name of the template the body was rendered from.
func (m *Message) Template() string { return m.template }

// Delay returns how long after scheduling the message is sent.
func (m *Message) Delay() time.Duration { return m.delay }

// Immediate reports whether the message is sent without a delay.
func (m *Message) Immediate() bool { return m.delay == 0 }

// Attachments returns a copy of the spooled attachments.
func (m *Message) Attachments() []attachment.Resolved {
	return slices.Clone(m.attachments)
}

// Email converts the message into a transport email carrying files.
func (m *Message) Email(files []mailer.Attachment) *mailer.Email {
	return &mailer.Email{
		From:        mailer.Recipient(m.fromName, m.from),
		To:          []string{m.to},
		Subject:     m.subject,
		HTML:        m.html,
		Text:        m.text,
		Attachments: files,
		Tags:        map[string]string{"template": m.template},
	}
}

type messageJSON struct {
	From        string                `json:"from"`
	FromName    string                `json:"from_name"`
	To          string                `json:"to"`
	Subject     string                `json:"subject"`
	HTML        string                `json:"html"`
	Text        string                `json:"text"`
	Template    string                `json:"template"`
	Attachments []attachment.Resolved `json:"attachments,omitempty"`
	Delay       time.Duration         `json:"delay"`
}

// MarshalJSON encodes the message for the durable queue.
func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		From:        m.from,
		FromName:    m.fromName,
		To:          m.to,
		Subject:     m.subject,
		HTML:        m.html,
		Text:        m.text,
		Template:    m.template,
		Attachments: m.attachments,
		Delay:       m.delay,
	})
}

// UnmarshalJSON restores a message encoded by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var v messageJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Message{
		from:        v.From,
		fromName:    v.FromName,
		to:          v.To,
		subject:     v.Subject,
		html:        v.HTML,
		text:        v.Text,
		template:    v.Template,
		attachments: v.Attachments,
		delay:       v.Delay,
	}
	return nil
}
