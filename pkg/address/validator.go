package address

import (
	"context"
	"errors"
)

// Gate inspects an address and returns a non-nil error to stop evaluation.
type Gate func(ctx context.Context, addr string) error

// Validator runs sender and recipient checks.
type Validator struct {
	to []Gate
}

// NewValidator builds the recipient gate chain: domain blocklist, recent
// failure, then syntax. A nil blocklist leaves only the syntax gate.
func NewValidator(bl Blocklist) *Validator {
	var gates []Gate
	if bl != nil {
		gates = append(gates,
			predicateGate(bl.IsDomainBlocked, ErrBlockedDomain),
			predicateGate(bl.HasRecentFailure, ErrRecentFailure),
		)
	}
	gates = append(gates, syntaxGate)
	return &Validator{to: gates}
}

// From validates a sender address. Senders are only checked for syntax.
func (v *Validator) From(addr string) (string, error) {
	return Parse(addr)
}

// To runs every recipient gate in order and returns the normalized address.
func (v *Validator) To(ctx context.Context, addr string) (string, error) {
	for _, gate := range v.to {
		if err := gate(ctx, addr); err != nil {
			return "", err
		}
	}
	return Parse(addr)
}

func syntaxGate(_ context.Context, addr string) error {
	_, err := Parse(addr)
	return err
}

func predicateGate(check func(context.Context, string) (bool, error), reject error) Gate {
	return func(ctx context.Context, addr string) error {
		hit, err := check(ctx, addr)
		if err != nil {
			return errors.Join(ErrGateUnavailable, err)
		}
		if hit {
			return reject
		}
		return nil
	}
}
