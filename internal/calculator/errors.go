package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/money"
)

// Error kinds returned by the engine. Detailed errors wrap one of these, so
// callers can branch with errors.Is and pull details out with errors.As.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyParticipantSet = errors.New("participant set is empty")
	ErrUnknownMember       = errors.New("unknown member")
	ErrShareMismatch       = errors.New("shares do not add up to total")
	ErrBalanceInvariant    = errors.New("balance invariant violated")
)

// AmountError reports a negative or zero input where a positive value is required.
type AmountError struct {
	Field  string
	Amount money.Money
	Reason string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount: %s %s (%s)", e.Field, e.Amount, e.Reason)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// UnknownMemberError reports a name that is not part of the set it must belong to.
type UnknownMemberError struct {
	Member string
	// Scope names the set the member was checked against ("group" or "participants").
	Scope string
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("unknown member: %q is not in %s", e.Member, e.Scope)
}

func (e *UnknownMemberError) Unwrap() error { return ErrUnknownMember }

// ShareMismatchError reports custom shares whose sum differs from the total.
type ShareMismatchError struct {
	Expected money.Money
	Actual   money.Money
}

func (e *ShareMismatchError) Error() string {
	return fmt.Sprintf("shares do not add up to total: expected %s, got %s", e.Expected, e.Actual)
}

func (e *ShareMismatchError) Unwrap() error { return ErrShareMismatch }

// BalanceInvariantError signals balances that cannot be settled to zero.
// It indicates corrupt input or a bug, never a user mistake.
type BalanceInvariantError struct {
	Residual  money.Money
	Tolerance money.Money
}

func (e *BalanceInvariantError) Error() string {
	return fmt.Sprintf("balance invariant violated: residual %s exceeds tolerance %s", e.Residual, e.Tolerance)
}

func (e *BalanceInvariantError) Unwrap() error { return ErrBalanceInvariant }
