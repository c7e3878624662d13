// Package export writes a group's ledger as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

// View selects which table of a group is exported.
type View string

const (
	ViewExpenses    View = "expenses"
	ViewBalances    View = "balances"
	ViewSettlements View = "settlements"
)

// ParseView parses a view name. The empty string means ViewExpenses.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewExpenses:
		return ViewExpenses, nil
	case ViewBalances, ViewSettlements:
		return View(s), nil
	default:
		return "", fmt.Errorf("unknown export view %q", s)
	}
}

const dateFormat = "2006-01-02"

var (
	expenseHeader    = []string{"expense_id", "date", "description", "paid_by", "split_type", "base", "discount", "service_tax", "gst", "total"}
	balanceHeader    = []string{"member", "total_paid", "total_owed", "net"}
	settlementHeader = []string{"from", "to", "amount"}
)

// WriteExpenses writes one row per expense followed by one share column per
// group member, in member order.
func WriteExpenses(w io.Writer, g *models.Group, expenses []*models.Expense) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append(append([]string{}, expenseHeader...), g.Members...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range expenses {
		if err := cw.Write(MarshalExpense(g.Members, e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalExpense converts an expense to a CSV row.
func MarshalExpense(members []string, e *models.Expense) []string {
	row := []string{
		strconv.FormatInt(e.ID, 10),
		time.Unix(e.Date, 0).UTC().Format(dateFormat),
		e.Description,
		e.PaidBy,
		string(e.SplitType),
		e.BaseAmount.String(),
		e.Discount.String(),
		e.ServiceTax.String(),
		e.GST.String(),
		e.TotalAmount.String(),
	}
	for _, m := range members {
		row = append(row, e.Shares[m].String())
	}
	return row
}

// WriteBalances writes one row per member.
func WriteBalances(w io.Writer, balances calculator.Balances) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(balanceHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, b := range balances {
		row := []string{b.Member, b.TotalPaid.String(), b.TotalOwed.String(), b.Net.String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSettlements writes one row per planned payment.
func WriteSettlements(w io.Writer, settlements []calculator.Settlement) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(settlementHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, s := range settlements {
		if err := cw.Write([]string{s.From, s.To, s.Amount.String()}); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
