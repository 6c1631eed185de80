package mailer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is a stored mail template.
type Template struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Digest identifies the body content; compiled forms are cached under it.
func (t Template) Digest() string {
	sum := sha256.Sum256([]byte(t.Body))
	return hex.EncodeToString(sum[:8])
}

// Format selects how a body is turned into HTML.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Frontmatter is the optional YAML header of a template body.
type Frontmatter struct {
	Format Format         `yaml:"format"`
	Extra  map[string]any `yaml:",inline"`
}

const frontmatterDelimiter = "---"

// splitFrontmatter separates the YAML header from the template source.
// A body that does not start with the delimiter has no header and is HTML.
func splitFrontmatter(content string) (Frontmatter, string, error) {
	meta := Frontmatter{Format: FormatHTML}

	raw := []byte(content)
	if !bytes.HasPrefix(raw, []byte(frontmatterDelimiter)) {
		return meta, content, nil
	}

	rest := bytes.TrimLeft(raw[len(frontmatterDelimiter):], "\r\n")
	end := bytes.Index(rest, []byte(frontmatterDelimiter))
	if end < 0 {
		return meta, "", fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	header := rest[:end]
	body := rest[end+len(frontmatterDelimiter):]
	switch {
	case bytes.HasPrefix(body, []byte("\r\n")):
		body = body[2:]
	case bytes.HasPrefix(body, []byte("\n")):
		body = body[1:]
	}

	if len(bytes.TrimSpace(header)) > 0 {
		if err := yaml.Unmarshal(header, &meta); err != nil {
			return meta, "", fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	switch Format(strings.ToLower(string(meta.Format))) {
	case "", FormatHTML:
		meta.Format = FormatHTML
	case FormatMarkdown, "md":
		meta.Format = FormatMarkdown
	default:
		return meta, "", fmt.Errorf("%w: unsupported format %q", ErrInvalidFrontmatter, meta.Format)
	}

	return meta, string(body), nil
}
