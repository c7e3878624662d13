package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	shares := make(map[string]string, len(e.Shares))
	for m, s := range e.Shares {
		shares[m] = s.String()
	}
	return &api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Base:         e.BaseAmount.String(),
		Discount:     e.Discount.String(),
		ServiceTax:   e.ServiceTax.String(),
		GST:          e.GST.String(),
		Total:        e.TotalAmount.String(),
		PaidBy:       e.PaidBy,
		SplitType:    string(e.SplitType),
		Participants: e.Participants,
		Shares:       shares,
		Date:         e.Date,
	}
}

func toAPIBalances(balances calculator.Balances) []*api.Balance {
	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = &api.Balance{
			Member:    b.Member,
			Net:       b.Net.String(),
			TotalPaid: b.TotalPaid.String(),
			TotalOwed: b.TotalOwed.String(),
		}
	}
	return out
}

func toAPISettlements(settlements []calculator.Settlement) []*api.Settlement {
	out := make([]*api.Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = &api.Settlement{From: s.From, To: s.To, Amount: s.Amount.String()}
	}
	return out
}

func toAPIBreakdown(b calculator.Breakdown) *api.ComputeTotalResponse {
	return &api.ComputeTotalResponse{
		Base:          b.Base.String(),
		Discount:      b.Discount.String(),
		AfterDiscount: b.AfterDiscount.String(),
		ServiceTax:    b.ServiceTax.String(),
		GST:           b.GST.String(),
		Total:         b.Total.String(),
	}
}

// parseAmount parses a decimal string. Blank means zero.
func parseAmount(field, s string) (money.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	m, err := money.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ledger.ErrInvalidInput, field, err)
	}
	return m, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %q is not a number", ledger.ErrInvalidInput, field, s)
	}
	return d, nil
}

func toAdjustments(c api.Charge) (ledger.Adjustments, error) {
	var a ledger.Adjustments
	var err error
	if a.Base, err = parseAmount("base", c.Base); err != nil {
		return a, err
	}
	if a.Discount, err = parseDecimal("discount", c.Discount); err != nil {
		return a, err
	}
	if a.ServiceTax, err = parseDecimal("service_tax", c.ServiceTax); err != nil {
		return a, err
	}
	if a.GST, err = parseDecimal("gst", c.GST); err != nil {
		return a, err
	}
	a.Mode, err = ledger.ParseAdjustmentMode(c.Mode)
	return a, err
}

func toExpenseInput(f api.ExpenseFields) (ledger.ExpenseInput, error) {
	adj, err := toAdjustments(f.Charge)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	in := ledger.ExpenseInput{
		Description:  f.Description,
		Adjustments:  adj,
		PaidBy:       f.PaidBy,
		SplitType:    calculator.SplitType(f.SplitType),
		Participants: f.Participants,
	}
	if f.Date != 0 {
		in.Date = time.Unix(f.Date, 0)
	}
	if len(f.CustomShares) > 0 {
		in.CustomShares = make(map[string]money.Money, len(f.CustomShares))
		for member, s := range f.CustomShares {
			amount, err := parseAmount("custom_shares["+member+"]", s)
			if err != nil {
				return ledger.ExpenseInput{}, err
			}
			in.CustomShares[member] = amount
		}
	}
	return in, nil
}
