package mailer

import (
	"errors"
	"fmt"
)

var (
	ErrBlankTemplateName  = errors.New("mailer: blank template name")
	ErrBlankTemplateBody  = errors.New("mailer: blank template body")
	ErrTemplateNotFound   = errors.New("mailer: template not found")
	ErrStoreUnavailable   = errors.New("mailer: template store unavailable")
	ErrTemplateExists     = errors.New("mailer: template already exists")
	ErrTemplateInvalid    = errors.New("mailer: template cannot be compiled")
	ErrMissingVariable    = errors.New("mailer: missing template variable")
	ErrRenderFailed       = errors.New("mailer: failed to render template")
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")
	ErrUnknownPolicy      = errors.New("mailer: unknown duplicate policy")
	ErrNoRecipient        = errors.New("mailer: email must have at least one recipient")
	ErrSendFailed         = errors.New("mailer: failed to send email")
)

// MissingVariableError names the template variable absent from the parameters.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingVariable, e.Name)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}
