package postoffice

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// result is a field value or the failure recorded when the field was set.
type result[T any] struct {
	value T
	err   error
	set   bool
}

func ok[T any](v T) result[T] { return result[T]{value: v, set: true} }

func fail[T any](err error) result[T] { return result[T]{err: err, set: true} }

// get returns the value, or the field error when the field failed or was never set.
func (r result[T]) get(field Field, fallback Reason) (T, error) {
	switch {
	case !r.set:
		var zero T
		return zero, &Error{Field: field, Reason: ReasonFieldNotConfigured, Err: ErrFieldNotConfigured}
	case r.err != nil:
		var zero T
		return zero, fieldError(field, r.err, fallback)
	}
	return r.value, nil
}

// Builder assembles a Message. Every setter validates its own input right
// away and stores the outcome; Build reports the first failure in field order.
// A Builder is not safe for concurrent use.
type Builder struct {
	validator *address.Validator
	resolver  *mailer.Resolver
	fetcher   *attachment.Fetcher

	to          result[string]
	from        result[string]
	title       result[string]
	template    result[*mailer.Compiled]
	fromName    result[string]
	params      result[map[string]any]
	attachments result[[]attachment.Spec]
	delay       result[time.Duration]
}

// NewBuilder returns an empty builder over the given collaborators.
func NewBuilder(v *address.Validator, r *mailer.Resolver, f *attachment.Fetcher) *Builder {
	return &Builder{validator: v, resolver: r, fetcher: f}
}

// To runs the recipient gates.
func (b *Builder) To(ctx context.Context, addr string) *Builder {
	b.to = validated(b.validator.To(ctx, addr))
	return b
}

// From checks the sender address syntax.
func (b *Builder) From(addr string) *Builder {
	b.from = validated(b.validator.From(addr))
	return b
}

// Title sets the subject line. Blank titles fail.
func (b *Builder) Title(title string) *Builder {
	b.title = nonBlank(title)
	return b
}

// Template looks up and compiles the named template.
func (b *Builder) Template(ctx context.Context, name string) *Builder {
	b.template = validated(b.resolver.Resolve(ctx, name))
	return b
}

// FromName sets the sender display name. Blank names fail.
func (b *Builder) FromName(name string) *Builder {
	b.fromName = nonBlank(name)
	return b
}

// Parameters sets the values bound into the template at Build.
// A nil map is treated as empty.
func (b *Builder) Parameters(params map[string]any) *Builder {
	if params == nil {
		params = map[string]any{}
	}
	b.params = ok(params)
	return b
}

// Attachments sets the remote files fetched at Build.
func (b *Builder) Attachments(specs []attachment.Spec) *Builder {
	b.attachments = ok(specs)
	return b
}

// SendNow marks the message for immediate delivery.
func (b *Builder) SendNow() *Builder {
	b.delay = ok(time.Duration(0))
	return b
}

// maxDelaySeconds is the longest delay a time.Duration can hold.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

// SendAfter delays delivery by seconds, which must be positive and fit a
// time.Duration.
func (b *Builder) SendAfter(seconds int64) *Builder {
	if seconds <= 0 || seconds > maxDelaySeconds {
		b.delay = fail[time.Duration](ErrInvalidDelay)
		return b
	}
	b.delay = ok(time.Duration(seconds) * time.Second)
	return b
}

// Build folds the fields in order and returns the first failure. The
// template is rendered only when every earlier field passed, and
// attachments are fetched only when rendering passed. Fetched attachments
// belong to the returned Message; they are released here when Build fails.
func (b *Builder) Build(ctx context.Context) (*Message, error) {
	to, err := b.to.get(FieldTo, ReasonInvalidAddressFormat)
	if err != nil {
		return nil, err
	}
	from, err := b.from.get(FieldFrom, ReasonInvalidAddressFormat)
	if err != nil {
		return nil, err
	}
	title, err := b.title.get(FieldTitle, ReasonBlankField)
	if err != nil {
		return nil, err
	}
	tmpl, err := b.template.get(FieldTemplate, ReasonTemplateNotFound)
	if err != nil {
		return nil, err
	}
	fromName, err := b.fromName.get(FieldFromName, ReasonBlankField)
	if err != nil {
		return nil, err
	}
	params, err := b.params.get(FieldParameters, ReasonTemplateInvalid)
	if err != nil {
		return nil, err
	}
	rendered, err := tmpl.Render(params)
	if err != nil {
		return nil, fieldError(FieldParameters, err, ReasonTemplateInvalid)
	}
	specs, err := b.attachments.get(FieldAttachments, ReasonAttachmentFetchFailed)
	if err != nil {
		return nil, err
	}

	var resolved []attachment.Resolved
	if len(specs) > 0 {
		// A delayed message keeps its files in the spool until it fires.
		var hold time.Time
		if b.delay.err == nil && b.delay.value > 0 {
			hold = time.Now().Add(b.delay.value)
		}
		resolved, err = b.fetcher.FetchHeld(ctx, specs, hold)
		if err != nil {
			return nil, fieldError(FieldAttachments, err, ReasonAttachmentFetchFailed)
		}
	}

	delay, err := b.delay.get(FieldDelay, ReasonInvalidDelay)
	if err != nil {
		b.fetcher.Release(context.WithoutCancel(ctx), resolved)
		return nil, err
	}

	return &Message{
		from:        from,
		fromName:    fromName,
		to:          to,
		subject:     title + attachment.SubjectSuffix(resolved),
		html:        rendered.HTML,
		text:        rendered.Text,
		template:    tmpl.Name(),
		attachments: resolved,
		delay:       delay,
	}, nil
}

func validated[T any](v T, err error) result[T] {
	if err != nil {
		return fail[T](err)
	}
	return ok(v)
}

// nonBlank trims and NFC-normalizes s, failing when nothing is left.
func nonBlank(s string) result[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return fail[string](ErrBlankField)
	}
	return ok(norm.NFC.String(s))
}
