package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/money"
)

// Expense is one payment made by a group member on behalf of some participants.
type Expense struct {
	// ID is assigned by storage on creation.
	ID int64

	// GroupID is the group this expense belongs to.
	GroupID int64

	// Description is a short human-readable label (e.g., "Dinner at Tito's").
	Description string

	// BaseAmount is the charge before discount and taxes.
	BaseAmount money.Money

	// Discount, ServiceTax and GST are fixed amounts. Percentage input is
	// converted before an Expense is built.
	Discount   money.Money
	ServiceTax money.Money
	GST        money.Money

	// TotalAmount is derived by calculator.ComputeTotal and never set directly.
	TotalAmount money.Money

	// PaidBy is the member who paid the full total.
	PaidBy string

	SplitType calculator.SplitType

	// Participants is the subset of group members sharing this expense,
	// in group member order.
	Participants []string

	// Shares maps every group member to their portion of TotalAmount.
	// Members outside Participants map to zero.
	Shares map[string]money.Money

	// Date is the Unix timestamp when the expense was recorded.
	Date int64
}

// ShareTolerance is how far the sum of shares may drift from the total for
// an expense split between n participants.
func ShareTolerance(n int) money.Money {
	return calculator.EqualSplitDriftBound(n)
}

// Validate checks the expense against the group it belongs to.
func (e *Expense) Validate(g *Group) error {
	var errs []error
	if e.GroupID != g.ID {
		errs = append(errs, fmt.Errorf("expense belongs to group %d, not %d", e.GroupID, g.ID))
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, errors.New("description is required"))
	}

	breakdown, err := calculator.ComputeTotal(e.BaseAmount, e.Discount, e.ServiceTax, e.GST)
	switch {
	case err != nil:
		errs = append(errs, err)
	case breakdown.Total != e.TotalAmount:
		errs = append(errs, fmt.Errorf("total %s does not match computed total %s", e.TotalAmount, breakdown.Total))
	}

	if err := calculator.RequireMember(g.Members, e.PaidBy); err != nil {
		errs = append(errs, fmt.Errorf("paid by: %w", err))
	}
	if _, err := calculator.ParseSplitType(string(e.SplitType)); err != nil {
		errs = append(errs, err)
	}
	if len(e.Participants) == 0 {
		errs = append(errs, calculator.ErrEmptyParticipantSet)
	}

	participating := make(map[string]bool, len(e.Participants))
	for _, p := range e.Participants {
		if err := calculator.RequireMember(g.Members, p); err != nil {
			errs = append(errs, err)
		}
		participating[p] = true
	}

	var sum money.Money
	for _, m := range g.Members {
		share, ok := e.Shares[m]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("missing share for member %q", m))
		case share < 0:
			errs = append(errs, &calculator.AmountError{Field: "share[" + m + "]", Amount: share, Reason: "must not be negative"})
		case share != 0 && !participating[m]:
			errs = append(errs, fmt.Errorf("non-participant %q has share %s", m, share))
		}
		sum += share
	}
	for m := range e.Shares {
		if !g.HasMember(m) {
			errs = append(errs, &calculator.UnknownMemberError{Member: m, Scope: "group"})
		}
	}
	if diff := (sum - e.TotalAmount).Abs(); diff > ShareTolerance(len(e.Participants)) {
		errs = append(errs, &calculator.ShareMismatchError{Expected: e.TotalAmount, Actual: sum})
	}

	return errors.Join(errs...)
}

// ForBalance returns the view of the expense used for balance aggregation.
func (e *Expense) ForBalance() calculator.ExpenseForBalance {
	return calculator.ExpenseForBalance{
		PaidBy: e.PaidBy,
		Total:  e.TotalAmount,
		Shares: e.Shares,
	}
}
