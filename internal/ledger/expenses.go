package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// AdjustmentMode tells how Discount, ServiceTax and GST are expressed.
type AdjustmentMode string

const (
	// ModeAmount: adjustments are currency amounts.
	ModeAmount AdjustmentMode = "amount"
	// ModePercent: adjustments are percentages of the base amount.
	ModePercent AdjustmentMode = "percent"
)

// ParseAdjustmentMode parses a mode. The empty string means ModeAmount.
func ParseAdjustmentMode(s string) (AdjustmentMode, error) {
	switch AdjustmentMode(s) {
	case "", ModeAmount:
		return ModeAmount, nil
	case ModePercent:
		return ModePercent, nil
	default:
		return "", fmt.Errorf("%w: unknown adjustment mode %q", ErrInvalidInput, s)
	}
}

// Adjustments is the raw charge of an expense as entered by a user.
type Adjustments struct {
	Base       money.Money
	Discount   decimal.Decimal
	ServiceTax decimal.Decimal
	GST        decimal.Decimal
	Mode       AdjustmentMode
}

// Fixed converts the adjustments to fixed amounts. Percentages are applied
// to Base and rounded half up to cents.
func (a Adjustments) Fixed() (discount, serviceTax, gst money.Money, err error) {
	switch a.Mode {
	case "", ModeAmount:
		return money.FromDecimal(a.Discount), money.FromDecimal(a.ServiceTax), money.FromDecimal(a.GST), nil
	case ModePercent:
		return money.PercentOf(a.Base, a.Discount), money.PercentOf(a.Base, a.ServiceTax), money.PercentOf(a.Base, a.GST), nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: unknown adjustment mode %q", ErrInvalidInput, a.Mode)
	}
}

// ExpenseInput is everything a caller supplies to record or edit an expense.
type ExpenseInput struct {
	Description string
	Adjustments
	PaidBy       string
	SplitType    calculator.SplitType
	Participants []string
	// CustomShares is only read for calculator.SplitCustom.
	CustomShares map[string]money.Money
	// Date defaults to now on create and to the stored date on update.
	Date time.Time
}

// PreviewTotal computes the breakdown for a charge without storing anything.
func (s *Service) PreviewTotal(ctx context.Context, a Adjustments) (calculator.Breakdown, error) {
	discount, tax, gst, err := a.Fixed()
	if err != nil {
		return calculator.Breakdown{}, err
	}
	return calculator.ComputeTotal(a.Base, discount, tax, gst)
}

// AddExpense records a new expense in a group.
func (s *Service) AddExpense(ctx context.Context, groupID int64, in ExpenseInput) (*models.Expense, error) {
	var e *models.Expense
	err := s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		var err error
		e, err = s.buildExpense(tx.Group(), in)
		if err != nil {
			return err
		}
		if e.Date == 0 {
			e.Date = s.now().Unix()
		}
		return tx.InsertExpense(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Expense recorded",
		"group_id", groupID,
		"expense_id", e.ID,
		"total", e.TotalAmount.String(),
		"split_type", e.SplitType,
	)
	s.metrics.ExpenseRecorded(string(e.SplitType))
	s.publish(ctx, events.ExpenseRecorded, groupID, e.ID)
	return e, nil
}

// UpdateExpense replaces every field of an expense and recomputes its total
// and shares. The group of an expense never changes.
func (s *Service) UpdateExpense(ctx context.Context, expenseID int64, in ExpenseInput) (*models.Expense, error) {
	current, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	var e *models.Expense
	err = s.store.InGroupTx(ctx, current.GroupID, func(tx storage.GroupTx) error {
		var err error
		e, err = s.buildExpense(tx.Group(), in)
		if err != nil {
			return err
		}
		e.ID = expenseID
		if e.Date == 0 {
			e.Date = current.Date
		}
		return tx.ReplaceExpense(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Expense updated", "group_id", e.GroupID, "expense_id", e.ID)
	s.metrics.ExpenseRecorded(string(e.SplitType))
	s.publish(ctx, events.ExpenseUpdated, e.GroupID, e.ID)
	return e, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, expenseID int64) error {
	current, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	err = s.store.InGroupTx(ctx, current.GroupID, func(tx storage.GroupTx) error {
		return tx.DeleteExpense(ctx, expenseID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "group_id", current.GroupID, "expense_id", expenseID)
	s.publish(ctx, events.ExpenseDeleted, current.GroupID, expenseID)
	return nil
}

// buildExpense runs the calculator over the input and returns a fully
// validated expense for g. Nothing is written.
func (s *Service) buildExpense(g *models.Group, in ExpenseInput) (*models.Expense, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	splitType, err := calculator.ParseSplitType(string(in.SplitType))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	discount, tax, gst, err := in.Fixed()
	if err != nil {
		return nil, err
	}
	breakdown, err := calculator.ComputeTotal(in.Base, discount, tax, gst)
	if err != nil {
		return nil, err
	}

	if err := calculator.RequireMember(g.Members, in.PaidBy); err != nil {
		return nil, err
	}

	participants := inGroupOrder(g.Members, in.Participants)
	var opts []calculator.AllocateOption
	if s.remainder == config.RemainderPayer && len(participants) > 0 {
		opts = append(opts, calculator.RemainderTo(remainderHolder(in.PaidBy, participants)))
	}

	alloc, err := calculator.AllocateShares(breakdown.Total, g.Members, in.Participants, splitType, in.CustomShares, opts...)
	if err != nil {
		return nil, err
	}
	if alloc.Remainder != 0 {
		slog.Debug("Equal split leaves a remainder",
			"group_id", g.ID,
			"total", breakdown.Total.String(),
			"remainder", alloc.Remainder.String(),
		)
	}

	var date int64
	if !in.Date.IsZero() {
		date = in.Date.Unix()
	}

	e := &models.Expense{
		GroupID:      g.ID,
		Description:  description,
		BaseAmount:   breakdown.Base,
		Discount:     breakdown.Discount,
		ServiceTax:   breakdown.ServiceTax,
		GST:          breakdown.GST,
		TotalAmount:  breakdown.Total,
		PaidBy:       in.PaidBy,
		SplitType:    splitType,
		Participants: participants,
		Shares:       alloc.Shares,
		Date:         date,
	}
	if err := e.Validate(g); err != nil {
		return nil, err
	}
	return e, nil
}

// inGroupOrder returns the members named in participants, in group order.
// Names outside the group are dropped; AllocateShares reports them.
func inGroupOrder(members, participants []string) []string {
	named := make(map[string]bool, len(participants))
	for _, p := range participants {
		named[p] = true
	}
	out := make([]string, 0, len(participants))
	for _, m := range members {
		if named[m] {
			out = append(out, m)
		}
	}
	return out
}

// remainderHolder is the participant that absorbs an equal split's rounding
// remainder: the payer when they share the expense, else the first
// participant in group order.
func remainderHolder(payer string, participants []string) string {
	for _, p := range participants {
		if p == payer {
			return payer
		}
	}
	return participants[0]
}
