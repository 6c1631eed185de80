// Package address validates mail addresses.
//
// Parse is the pure syntax gate. Validator composes ordered gates for
// recipient addresses: blocklist checks run before the syntax check, and the
// first failing gate decides the error the caller sees.
package address

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidFormat   = errors.New("address: invalid address format")
	ErrBlockedDomain   = errors.New("address: recipient domain is blocked")
	ErrRecentFailure   = errors.New("address: recent delivery to recipient failed")
	ErrGateUnavailable = errors.New("address: blocklist unavailable")
)

// Blocklist answers the two external recipient questions.
type Blocklist interface {
	IsDomainBlocked(ctx context.Context, addr string) (bool, error)
	HasRecentFailure(ctx context.Context, addr string) (bool, error)
}

// Parse checks the local@domain.tld shape and returns the normalized address:
// surrounding whitespace trimmed, domain lower-cased. The domain needs a dot
// with a character on each side, so a@.com fails, and inner whitespace fails.
func Parse(addr string) (string, error) {
	addr = strings.TrimSpace(addr)

	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return "", ErrInvalidFormat
	}
	if strings.ContainsAny(addr, " \t\r\n") || !hasInnerDot(domain) {
		return "", ErrInvalidFormat
	}

	return local + "@" + strings.ToLower(domain), nil
}

// Domain returns the lower-cased part after the last '@', or "" when there is none.
func Domain(addr string) string {
	i := strings.LastIndexByte(addr, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[i+1:]))
}

// hasInnerDot reports whether some dot has at least one character on each side.
func hasInnerDot(domain string) bool {
	for i := 1; i < len(domain)-1; i++ {
		if domain[i] == '.' {
			return true
		}
	}
	return false
}
