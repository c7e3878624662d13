package calculator

import (
	"cmp"
	"slices"

	"github.com/mmynk/splitledger/internal/money"
)

// Settlement is a single payment that moves From's debt to To.
type Settlement struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount money.Money `json:"amount"`
}

// InvariantTolerance is how far the sum of n balances may stray from zero
// before it is treated as corrupt.
func InvariantTolerance(n int) money.Money {
	return money.Epsilon * money.Money(max(n, 1))
}

type settleConfig struct {
	drift money.Money
}

// SettleOption tweaks SimplifyDebts.
type SettleOption func(*settleConfig)

// WithShareDrift tells SimplifyDebts how far the balances are expected to
// stray from zero because stored shares were not corrected for rounding.
// See ShareDrift.
func WithShareDrift(drift money.Money) SettleOption {
	return func(c *settleConfig) {
		c.drift = drift
	}
}

type position struct {
	member string
	amount money.Money
}

// SimplifyDebts produces a list of payments that brings every balance to zero.
//
// Members are split into creditors (net > Epsilon) and debtors
// (net < -Epsilon), each sorted by magnitude, largest first, ties kept in
// input order. The largest debtor pays the largest creditor the smaller of
// the two amounts until one side runs out. For n non-zero members at most
// n-1 payments are produced.
//
// Balances whose sum, less any drift passed with WithShareDrift, is off by
// more than InvariantTolerance return a BalanceInvariantError, as do
// residuals left after matching that the drift does not account for.
func SimplifyDebts(balances Balances, opts ...SettleOption) ([]Settlement, error) {
	var cfg settleConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	tolerance := InvariantTolerance(len(balances))
	if sum := balances.Sum() - cfg.drift; sum.Abs() > tolerance {
		return nil, &BalanceInvariantError{Residual: sum, Tolerance: tolerance}
	}
	tolerance += cfg.drift.Abs()

	var creditors, debtors []position
	for _, b := range balances {
		switch {
		case b.Net > money.Epsilon:
			creditors = append(creditors, position{b.Member, b.Net})
		case b.Net < -money.Epsilon:
			debtors = append(debtors, position{b.Member, -b.Net})
		}
	}
	byAmountDesc := func(a, b position) int { return cmp.Compare(b.amount, a.amount) }
	slices.SortStableFunc(creditors, byAmountDesc)
	slices.SortStableFunc(debtors, byAmountDesc)

	var settlements []Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]
		amount := money.Min(debtor.amount, creditor.amount)
		settlements = append(settlements, Settlement{From: debtor.member, To: creditor.member, Amount: amount})

		switch {
		case creditor.amount-debtor.amount > money.Epsilon:
			creditor.amount -= amount
			debtor.amount = 0
			i++
		case debtor.amount-creditor.amount > money.Epsilon:
			debtor.amount -= amount
			creditor.amount = 0
			j++
		default:
			debtor.amount -= amount
			creditor.amount -= amount
			i++
			j++
		}
	}

	var residual money.Money
	for _, p := range debtors {
		residual += p.amount
	}
	for _, p := range creditors {
		residual += p.amount
	}
	if residual > tolerance {
		return nil, &BalanceInvariantError{Residual: residual, Tolerance: tolerance}
	}
	return settlements, nil
}

// ApplySettlements returns balances as they would be after the given payments.
func ApplySettlements(balances Balances, settlements []Settlement) Balances {
	out := slices.Clone(balances)
	for _, s := range settlements {
		for i := range out {
			switch out[i].Member {
			case s.From:
				out[i].Net += s.Amount
			case s.To:
				out[i].Net -= s.Amount
			}
		}
	}
	return out
}
