package calculator

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/money"
)

// SplitType selects how an expense total is allocated across participants.
type SplitType string

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
)

// ParseSplitType parses "equal" or "custom".
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(s) {
	case SplitEqual, SplitCustom:
		return SplitType(s), nil
	default:
		return "", fmt.Errorf("unknown split type %q", s)
	}
}

// Allocation is the result of AllocateShares.
type Allocation struct {
	// Shares holds an entry for every group member; non-participants get zero.
	Shares map[string]money.Money

	// Remainder is total minus the sum of shares. An equal split that does
	// not divide evenly leaves a non-zero remainder of at most half a cent
	// per participant; it is reported here and never redistributed unless
	// RemainderTo was given.
	Remainder money.Money
}

// Sum adds up all shares.
func (a Allocation) Sum() money.Money {
	var sum money.Money
	for _, s := range a.Shares {
		sum += s
	}
	return sum
}

type allocateConfig struct {
	remainderTo string
}

// AllocateOption tweaks AllocateShares.
type AllocateOption func(*allocateConfig)

// RemainderTo assigns the equal-split rounding remainder to one participant
// so the shares add up to the total exactly.
func RemainderTo(member string) AllocateOption {
	return func(c *allocateConfig) {
		c.remainderTo = member
	}
}

// EqualSplitDriftBound is the largest possible difference between a total
// and the sum of n equal shares rounded to cents.
func EqualSplitDriftBound(n int) money.Money {
	return money.Max(money.Money(n/2), money.Epsilon)
}

// AllocateShares distributes total across participants.
//
// Equal splits give every participant round(total / n). Custom splits take
// the caller's amounts, which must cover every participant, be non-negative,
// and add up to total within money.Epsilon. Every member outside the
// participant set receives an explicit zero share.
func AllocateShares(total money.Money, members, participants []string, splitType SplitType, custom map[string]money.Money, opts ...AllocateOption) (Allocation, error) {
	var cfg allocateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if total <= 0 {
		return Allocation{}, &AmountError{Field: "total", Amount: total, Reason: "must be greater than zero"}
	}
	participants = dedupe(participants)
	if len(participants) == 0 {
		return Allocation{}, ErrEmptyParticipantSet
	}
	for _, p := range participants {
		if err := RequireMember(members, p); err != nil {
			return Allocation{}, err
		}
	}

	shares := make(map[string]money.Money, len(members))
	for _, m := range members {
		shares[m] = 0
	}

	switch splitType {
	case SplitEqual:
		share := total.DivRound(int64(len(participants)))
		for _, p := range participants {
			shares[p] = share
		}
	case SplitCustom:
		if err := applyCustomShares(shares, total, participants, custom); err != nil {
			return Allocation{}, err
		}
	default:
		return Allocation{}, fmt.Errorf("unknown split type %q", splitType)
	}

	alloc := Allocation{Shares: shares}
	alloc.Remainder = total - alloc.Sum()

	if cfg.remainderTo != "" && alloc.Remainder != 0 {
		if !contains(participants, cfg.remainderTo) {
			return Allocation{}, &UnknownMemberError{Member: cfg.remainderTo, Scope: "participants"}
		}
		shares[cfg.remainderTo] += alloc.Remainder
		alloc.Remainder = 0
	}

	return alloc, nil
}

func applyCustomShares(shares map[string]money.Money, total money.Money, participants []string, custom map[string]money.Money) error {
	for member, amount := range custom {
		if amount != 0 && !contains(participants, member) {
			return &UnknownMemberError{Member: member, Scope: "participants"}
		}
	}

	var sum money.Money
	for _, p := range participants {
		amount, ok := custom[p]
		if !ok {
			return &AmountError{Field: "share[" + p + "]", Amount: 0, Reason: "missing share for participant"}
		}
		if amount < 0 {
			return &AmountError{Field: "share[" + p + "]", Amount: amount, Reason: "must not be negative"}
		}
		shares[p] = amount
		sum += amount
	}

	if !money.Equal(sum, total) {
		return &ShareMismatchError{Expected: total, Actual: sum}
	}
	return nil
}

// RequireMember fails with an UnknownMemberError if member is not in members.
func RequireMember(members []string, member string) error {
	if !contains(members, member) {
		return &UnknownMemberError{Member: member, Scope: "group"}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dedupe drops repeated names, keeping first occurrence order.
func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
