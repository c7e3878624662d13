package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MinGroupMembers is the smallest group that can share expenses.
const MinGroupMembers = 2

// Group is a named set of members that share expenses.
type Group struct {
	// ID is assigned by storage on creation.
	ID int64

	// Name is the display name of the group (e.g., "Goa Trip", "Flat 4B").
	Name string

	// Members is the ordered list of member names. Order is significant:
	// balances are reported and debts are tie-broken in this order.
	// Members are fixed for the group's life.
	Members []string

	// ExpenseIDs lists the group's expenses in insertion order.
	// It is filled by storage and ignored on create.
	ExpenseIDs []int64

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// NormalizeMembers trims names and drops blanks, keeping order.
func NormalizeMembers(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks the group's name and members.
func (g *Group) Validate() error {
	var errs []error
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, errors.New("group name is required"))
	}
	if len(g.Members) < MinGroupMembers {
		errs = append(errs, fmt.Errorf("group needs at least %d members, got %d", MinGroupMembers, len(g.Members)))
	}
	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, errors.New("member name must not be blank"))
			continue
		}
		if seen[m] {
			errs = append(errs, fmt.Errorf("duplicate member %q", m))
		}
		seen[m] = true
	}
	return errors.Join(errs...)
}

// HasMember reports whether name belongs to the group.
func (g *Group) HasMember(name string) bool {
	return slices.Contains(g.Members, name)
}
