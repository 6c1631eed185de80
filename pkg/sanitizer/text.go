// Package sanitizer turns rendered HTML mail bodies into the plain-text
// alternative part.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy

	// Block-level boundaries become line breaks before tags are stripped.
	blockBoundary = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|tr|h[1-6]|blockquote|pre|table)>`)
	dropContent   = regexp.MustCompile(`(?is)<(style|script|head)[^>]*>.*?</(style|script|head)>`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// PlainText strips every tag from body, keeps paragraph breaks and unescapes
// entities. Runs of spaces collapse to one and at most one blank line separates
// paragraphs.
func PlainText(body string) string {
	body = dropContent.ReplaceAllString(body, "")
	body = blockBoundary.ReplaceAllString(body, "$0\n")
	body = html.UnescapeString(strictPolicy().Sanitize(body))

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	body = strings.Join(lines, "\n")
	body = blankLines.ReplaceAllString(body, "\n\n")

	return strings.TrimSpace(body)
}
