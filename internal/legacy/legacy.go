// Package legacy imports the data.json file written by the first, file-based
// version of the expense splitter.
//
// That format stores amounts as floats, has no tax or discount fields, and
// for equal splits lists a share for every member of the group. Imported
// expenses are replayed through the ledger so they are validated and
// allocated exactly like new ones.
package legacy

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/money"
)

// File is the top-level document.
type File struct {
	Groups        map[string]Group   `json:"groups"`
	Expenses      map[string]Expense `json:"expenses"`
	NextGroupID   int64              `json:"next_group_id"`
	NextExpenseID int64              `json:"next_expense_id"`
}

type Group struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"created_at"`
	Expenses  []int64  `json:"expenses"`
}

type Expense struct {
	ID          int64              `json:"id"`
	Description string             `json:"description"`
	Amount      float64            `json:"amount"`
	PaidBy      string             `json:"paid_by"`
	GroupID     int64              `json:"group_id"`
	SplitType   string             `json:"split_type"`
	Date        string             `json:"date"`
	Shares      map[string]float64 `json:"shares"`
}

// Read decodes a data.json document.
func Read(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding legacy data: %w", err)
	}
	return &f, nil
}

// Skipped is a record that could not be imported.
type Skipped struct {
	Kind   string // "group" or "expense"
	ID     int64
	Reason error
}

// Result summarizes an import. Old IDs map to the IDs assigned by the store.
type Result struct {
	GroupIDs   map[int64]int64
	ExpenseIDs map[int64]int64
	Skipped    []Skipped
}

// Import replays every group, oldest first, and then its expenses in the
// order the group lists them. Records the ledger rejects are skipped and
// reported; the error return is reserved for failures that stop the import.
func Import(ctx context.Context, l *ledger.Service, f *File) (*Result, error) {
	res := &Result{
		GroupIDs:   make(map[int64]int64),
		ExpenseIDs: make(map[int64]int64),
	}

	groups := make([]Group, 0, len(f.Groups))
	for key, g := range f.Groups {
		if g.ID == 0 {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("group key %q: %w", key, err)
			}
			g.ID = id
		}
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		createdAt, err := parseTime(g.CreatedAt)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Kind: "group", ID: g.ID, Reason: err})
			continue
		}
		created, err := l.CreateGroupAt(ctx, g.Name, g.Members, createdAt)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Kind: "group", ID: g.ID, Reason: err})
			continue
		}
		res.GroupIDs[g.ID] = created.ID

		for _, expenseID := range g.Expenses {
			e, ok := f.Expenses[strconv.FormatInt(expenseID, 10)]
			if !ok {
				res.Skipped = append(res.Skipped, Skipped{Kind: "expense", ID: expenseID, Reason: fmt.Errorf("listed by group %d but missing", g.ID)})
				continue
			}
			in, err := toInput(created.Members, e)
			if err != nil {
				res.Skipped = append(res.Skipped, Skipped{Kind: "expense", ID: expenseID, Reason: err})
				continue
			}
			stored, err := l.AddExpense(ctx, created.ID, in)
			if err != nil {
				res.Skipped = append(res.Skipped, Skipped{Kind: "expense", ID: expenseID, Reason: err})
				continue
			}
			res.ExpenseIDs[expenseID] = stored.ID
		}
	}

	slog.InfoContext(ctx, "Legacy import finished",
		"groups", len(res.GroupIDs),
		"expenses", len(res.ExpenseIDs),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// toInput converts a legacy expense. Participants are the members with a
// positive share; for equal splits that is every member.
func toInput(members []string, e Expense) (ledger.ExpenseInput, error) {
	date, err := parseTime(e.Date)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	splitType, err := calculator.ParseSplitType(e.SplitType)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}

	in := ledger.ExpenseInput{
		Description: e.Description,
		Adjustments: ledger.Adjustments{Base: money.FromFloat(e.Amount)},
		PaidBy:      e.PaidBy,
		SplitType:   splitType,
		Date:        date,
	}
	if splitType == calculator.SplitEqual {
		in.Participants = members
		return in, nil
	}

	in.CustomShares = make(map[string]money.Money)
	for _, m := range members {
		share := money.FromFloat(e.Shares[m])
		if share > 0 {
			in.Participants = append(in.Participants, m)
			in.CustomShares[m] = share
		}
	}
	return in, nil
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
