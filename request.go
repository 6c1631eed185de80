package postoffice

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/postoffice/pkg/attachment"
)

// AttachmentSpec names a remote file to attach.
type AttachmentSpec = attachment.Spec

// SendRequest is one message to send. The pipeline never modifies it.
type SendRequest struct {
	TemplateParameters map[string]any   `json:"template_parameters"`
	DelaySeconds       *int64           `json:"delay_seconds,omitempty"`
	FromAddress        string           `json:"from_address"`
	FromName           string           `json:"from_name"`
	ToAddress          string           `json:"to_address"`
	Title              string           `json:"title"`
	TemplateName       string           `json:"template_name"`
	Attachments        []AttachmentSpec `json:"attachments,omitempty"`
}

// Status is the state a send attempt reached when Send returned.
type Status string

const (
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusScheduled Status = "scheduled"
)

// Outcome reports one request of a batch.
type Outcome struct {
	Err       error
	AttemptID uuid.UUID
	Status    Status
}

// Reason returns the failure code, or "" when the attempt did not fail.
func (o Outcome) Reason() Reason {
	return ReasonOf(o.Err)
}

// CreateTemplateRequest is one template to store.
type CreateTemplateRequest struct {
	Name string `json:"name"`
	Body string `json:"body"`
}
