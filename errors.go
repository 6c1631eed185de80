package postoffice

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

var (
	ErrBlankField         = errors.New("postoffice: blank field")
	ErrInvalidDelay       = errors.New("postoffice: delay out of range")
	ErrFieldNotConfigured = errors.New("postoffice: field not configured")
	ErrDeliveryFailed     = errors.New("postoffice: transport delivery failed")
	ErrTransportPanic     = errors.New("postoffice: transport panicked")
	ErrDispatchRejected   = errors.New("postoffice: scheduler rejected the message")
	ErrDispatchAborted    = errors.New("postoffice: scheduled message dropped at shutdown")
	ErrSenderRequired     = errors.New("postoffice: mail sender is required")
)

// Reason is the failure code stored with a failed record.
type Reason string

const (
	ReasonInvalidAddressFormat    Reason = "invalid_address_format"
	ReasonBlockedDomain           Reason = "blocked_domain"
	ReasonBlockedByRecentFailure  Reason = "blocked_by_recent_failure"
	ReasonGateUnavailable         Reason = "gate_unavailable"
	ReasonBlankField              Reason = "blank_field"
	ReasonBlankTemplateName       Reason = "blank_template_name"
	ReasonTemplateNotFound        Reason = "template_not_found"
	ReasonStoreUnavailable        Reason = "template_store_unavailable"
	ReasonTemplateInvalid         Reason = "template_invalid"
	ReasonMissingTemplateVariable Reason = "missing_template_variable"
	ReasonAttachmentFetchFailed   Reason = "attachment_fetch_failed"
	ReasonAttachmentSizeMismatch  Reason = "attachment_size_mismatch"
	ReasonAttachmentTooLarge      Reason = "attachment_too_large"
	ReasonInvalidDelay            Reason = "invalid_delay"
	ReasonFieldNotConfigured      Reason = "field_not_configured"
	ReasonTransportDeliveryFailed Reason = "transport_delivery_failed"
	ReasonDispatchRejected        Reason = "dispatch_rejected"
	ReasonDispatchAborted         Reason = "dispatch_aborted"
)

// Field names the part of a request an error belongs to.
type Field string

const (
	FieldTo          Field = "to"
	FieldFrom        Field = "from"
	FieldTitle       Field = "title"
	FieldTemplate    Field = "template"
	FieldFromName    Field = "from_name"
	FieldParameters  Field = "parameters"
	FieldAttachments Field = "attachments"
	FieldDelay       Field = "delay"
	FieldTransport   Field = "transport"
	FieldDispatch    Field = "dispatch"
)

// Error is the failure of one send attempt.
type Error struct {
	Err    error
	Field  Field
	Reason Reason
}

func (e *Error) Error() string {
	return fmt.Sprintf("postoffice: %s: %s: %v", e.Field, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsContractViolation reports whether the error comes from builder misuse
// rather than from the request itself.
func (e *Error) IsContractViolation() bool {
	return e.Reason == ReasonFieldNotConfigured
}

// ReasonOf returns the reason carried by err, or "" when err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// reasons is checked in order; the first sentinel matched by errors.Is wins.
var reasons = []struct {
	err    error
	reason Reason
}{
	{ErrFieldNotConfigured, ReasonFieldNotConfigured},
	{address.ErrBlockedDomain, ReasonBlockedDomain},
	{address.ErrRecentFailure, ReasonBlockedByRecentFailure},
	{address.ErrGateUnavailable, ReasonGateUnavailable},
	{address.ErrInvalidFormat, ReasonInvalidAddressFormat},
	{mailer.ErrBlankTemplateName, ReasonBlankTemplateName},
	{ErrBlankField, ReasonBlankField},
	{mailer.ErrTemplateNotFound, ReasonTemplateNotFound},
	{mailer.ErrStoreUnavailable, ReasonStoreUnavailable},
	{mailer.ErrMissingVariable, ReasonMissingTemplateVariable},
	{mailer.ErrTemplateInvalid, ReasonTemplateInvalid},
	{mailer.ErrInvalidFrontmatter, ReasonTemplateInvalid},
	{mailer.ErrRenderFailed, ReasonTemplateInvalid},
	{attachment.ErrTooLarge, ReasonAttachmentTooLarge},
	{attachment.ErrSizeMismatch, ReasonAttachmentSizeMismatch},
	{attachment.ErrFetchFailed, ReasonAttachmentFetchFailed},
	{attachment.ErrSpoolNotFound, ReasonAttachmentFetchFailed},
	{ErrInvalidDelay, ReasonInvalidDelay},
	{ErrDispatchRejected, ReasonDispatchRejected},
	{ErrDispatchAborted, ReasonDispatchAborted},
	{ErrDeliveryFailed, ReasonTransportDeliveryFailed},
}

// fieldError wraps err for field, deriving the reason from the first
// matching sentinel. fallback applies when none matches.
func fieldError(field Field, err error, fallback Reason) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return &Error{Field: field, Reason: r.reason, Err: err}
		}
	}
	return &Error{Field: field, Reason: fallback, Err: err}
}
