// Package attachment downloads remote mail attachments into a spool and
// verifies them byte for byte.
//
// For every attachment the fetcher streams the body into the spool while
// counting bytes, then applies two checks in order: the received byte count
// must equal the declared Content-Length (an unknown length never matches),
// and the declared length must stay below the per-file ceiling. Attachments
// of one request are fetched concurrently; the first failure cancels the
// rest and every spooled file of that request is removed.
package attachment

import (
	"errors"
	"fmt"
	"strings"
)

// Ceiling is the per-file size limit. Declared lengths at or above it fail.
const Ceiling int64 = 2048 * 1024

var (
	ErrFetchFailed   = errors.New("attachment: fetch failed")
	ErrSizeMismatch  = errors.New("attachment: received size differs from declared content length")
	ErrTooLarge      = errors.New("attachment: file exceeds size ceiling")
	ErrSpoolNotFound = errors.New("attachment: spool entry not found")
)

// Spec names a remote file to attach.
type Spec struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Resolved is a fetched and verified attachment held in the spool.
type Resolved struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// SubjectSuffix describes the attachments for the subject line, for example
// " (2 attachments, total 300 bytes)". It is empty when there are none.
func SubjectSuffix(list []Resolved) string {
	if len(list) == 0 {
		return ""
	}

	var total int64
	for _, r := range list {
		total += r.Size
	}

	noun := "attachments"
	if len(list) == 1 {
		noun = "attachment"
	}
	return fmt.Sprintf(" (%d %s, total %d bytes)", len(list), noun, total)
}

// Names joins the attachment display names with commas for log lines.
func Names(list []Resolved) string {
	names := make([]string, len(list))
	for i, r := range list {
		names[i] = r.Name
	}
	return strings.Join(names, ",")
}
