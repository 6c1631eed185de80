package mailer

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"regexp"
	texttemplate "text/template"

	"github.com/yuin/goldmark"

	"github.com/dmitrymomot/postoffice/pkg/sanitizer"
)

// missingKey matches the executor error for an absent map key under missingkey=error.
var missingKey = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

var markdown = goldmark.New(goldmark.WithExtensions(ButtonExtension()))

// Rendered is the output of a successful render.
type Rendered struct {
	HTML string
	Text string
}

type executor interface {
	Execute(w io.Writer, data any) error
}

// Compiled is a parsed template ready for repeated rendering. It is safe for
// concurrent use.
type Compiled struct {
	name   string
	digest string
	format Format
	exec   executor
}

// Compile parses t. Parse errors wrap ErrTemplateInvalid.
func Compile(t Template) (*Compiled, error) {
	meta, body, err := splitFrontmatter(t.Body)
	if err != nil {
		return nil, errors.Join(ErrTemplateInvalid, err)
	}

	c := &Compiled{name: t.Name, digest: t.Digest(), format: meta.Format}
	switch meta.Format {
	case FormatMarkdown:
		c.exec, err = texttemplate.New(t.Name).Option("missingkey=error").Parse(body)
	default:
		c.exec, err = htmltemplate.New(t.Name).Option("missingkey=error").Parse(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}

	return c, nil
}

// Name returns the template name.
func (c *Compiled) Name() string { return c.name }

// Format returns the body format declared by the frontmatter.
func (c *Compiled) Format() Format { return c.format }

// Render binds params into the template. A variable the template references
// but params lacks yields *MissingVariableError.
func (c *Compiled) Render(params map[string]any) (Rendered, error) {
	if params == nil {
		params = map[string]any{}
	}

	var buf bytes.Buffer
	if err := c.exec.Execute(&buf, params); err != nil {
		if m := missingKey.FindStringSubmatch(err.Error()); m != nil {
			return Rendered{}, &MissingVariableError{Name: m[1]}
		}
		return Rendered{}, fmt.Errorf("%w: %s: %v", ErrRenderFailed, c.name, err)
	}

	if c.format != FormatMarkdown {
		html := buf.String()
		return Rendered{HTML: html, Text: sanitizer.PlainText(html)}, nil
	}

	// Plain text of a markdown template is the bound markdown source.
	var html bytes.Buffer
	if err := markdown.Convert(buf.Bytes(), &html); err != nil {
		return Rendered{}, fmt.Errorf("%w: %s: convert markdown: %v", ErrRenderFailed, c.name, err)
	}
	return Rendered{HTML: html.String(), Text: buf.String()}, nil
}
