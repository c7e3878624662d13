package calculator

import "github.com/mmynk/splitledger/internal/money"

// ExpenseForBalance is the minimal view of an expense needed for balance aggregation.
type ExpenseForBalance struct {
	PaidBy string
	Total  money.Money
	Shares map[string]money.Money
}

// MemberBalance is one member's position across all expenses of a group.
type MemberBalance struct {
	Member    string
	Net       money.Money // Positive = is owed money, negative = owes money
	TotalPaid money.Money
	TotalOwed money.Money
}

// Balances is a list of member balances in group member order.
type Balances []MemberBalance

// Sum adds up all net balances. It is zero for consistent input.
func (b Balances) Sum() money.Money {
	var sum money.Money
	for _, mb := range b {
		sum += mb.Net
	}
	return sum
}

// Get returns the balance of member, if present.
func (b Balances) Get(member string) (MemberBalance, bool) {
	for _, mb := range b {
		if mb.Member == member {
			return mb, true
		}
	}
	return MemberBalance{}, false
}

// Map returns net balances keyed by member.
func (b Balances) Map() map[string]money.Money {
	out := make(map[string]money.Money, len(b))
	for _, mb := range b {
		out[mb.Member] = mb.Net
	}
	return out
}

// AggregateBalances computes every member's net position.
//
// For each expense the payer is credited the full total and every member is
// debited their share. Net = paid - owed. The result has one entry per member,
// in members order, including members with no activity. Payers or shares
// naming someone outside members are skipped; the resulting imbalance shows up
// in SimplifyDebts.
func AggregateBalances(members []string, expenses []ExpenseForBalance) Balances {
	index := make(map[string]int, len(members))
	balances := make(Balances, 0, len(members))
	for _, m := range members {
		if _, dup := index[m]; dup {
			continue
		}
		index[m] = len(balances)
		balances = append(balances, MemberBalance{Member: m})
	}

	for _, e := range expenses {
		if i, ok := index[e.PaidBy]; ok {
			balances[i].TotalPaid += e.Total
		}
		for member, share := range e.Shares {
			if i, ok := index[member]; ok {
				balances[i].TotalOwed += share
			}
		}
	}

	for i := range balances {
		balances[i].Net = balances[i].TotalPaid - balances[i].TotalOwed
	}
	return balances
}

// ShareDrift sums total minus the sum of shares over every expense. An
// expense only counts when its drift is within EqualSplitDriftBound for the
// number of participants holding a share, which is what an uncorrected equal
// split can leave behind. Larger gaps are not rounding and stay unexplained.
func ShareDrift(expenses []ExpenseForBalance) money.Money {
	var drift money.Money
	for _, e := range expenses {
		var shares money.Money
		holders := 0
		for _, share := range e.Shares {
			shares += share
			if share > 0 {
				holders++
			}
		}
		if holders == 0 {
			continue
		}
		if d := e.Total - shares; d.Abs() <= EqualSplitDriftBound(holders) {
			drift += d
		}
	}
	return drift
}
