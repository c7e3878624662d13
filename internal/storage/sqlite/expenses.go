package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = `id, group_id, description, base_cents, discount_cents, service_tax_cents,
	gst_cents, total_cents, paid_by, split_type, date`

// GetExpense retrieves an expense by ID, including its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	list, err := queryExpenses(ctx, s.db, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return list[0], nil
}

// ListExpenses returns a group's expenses in insertion order.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error) {
	return queryExpenses(ctx, s.db, "WHERE group_id = ?", groupID)
}

// queryExpenses loads expenses matching where, then their shares in a second
// query. Rows are closed between the two because the pool has one connection.
func queryExpenses(ctx context.Context, q querier, where string, args ...any) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses "+where+" ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	var list []*models.Expense
	byID := make(map[int64]*models.Expense)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if len(list) == 0 {
		return nil, nil
	}

	shareRows, err := q.QueryContext(ctx,
		`SELECT expense_id, member, share_cents, participant FROM expense_shares
		WHERE expense_id IN (SELECT id FROM expenses `+where+`)
		ORDER BY expense_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var (
			expenseID   int64
			member      string
			cents       int64
			participant bool
		)
		if err := shareRows.Scan(&expenseID, &member, &cents, &participant); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		e, ok := byID[expenseID]
		if !ok {
			continue
		}
		e.Shares[member] = money.FromCents(cents)
		if participant {
			e.Participants = append(e.Participants, member)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return list, nil
}

func scanExpense(rows *sql.Rows) (*models.Expense, error) {
	var e models.Expense
	var base, discount, tax, gst, total int64
	var splitType string
	err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &base, &discount, &tax,
		&gst, &total, &e.PaidBy, &splitType, &e.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	e.BaseAmount = money.FromCents(base)
	e.Discount = money.FromCents(discount)
	e.ServiceTax = money.FromCents(tax)
	e.GST = money.FromCents(gst)
	e.TotalAmount = money.FromCents(total)
	e.SplitType = calculator.SplitType(splitType)
	e.Shares = make(map[string]money.Money)
	return &e, nil
}

// groupTx implements storage.GroupTx on top of a SQLite transaction.
type groupTx struct {
	tx    *sql.Tx
	group *models.Group
}

// InGroupTx runs fn in a transaction scoped to one group.
func (s *SQLiteStore) InGroupTx(ctx context.Context, groupID int64, fn func(storage.GroupTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return err
	}

	if err := fn(&groupTx{tx: tx, group: g}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *groupTx) Group() *models.Group {
	return t.group
}

func (t *groupTx) Expenses(ctx context.Context) ([]*models.Expense, error) {
	return queryExpenses(ctx, t.tx, "WHERE group_id = ?", t.group.ID)
}

func (t *groupTx) InsertExpense(ctx context.Context, e *models.Expense) error {
	if e.GroupID != t.group.ID {
		return fmt.Errorf("expense for group %d inserted in group %d", e.GroupID, t.group.ID)
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (group_id, description, base_cents, discount_cents, service_tax_cents,
			gst_cents, total_cents, paid_by, split_type, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GroupID, e.Description, e.BaseAmount.Cents(), e.Discount.Cents(), e.ServiceTax.Cents(),
		e.GST.Cents(), e.TotalAmount.Cents(), e.PaidBy, string(e.SplitType), e.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read expense id: %w", err)
	}
	e.ID = id

	if err := t.insertShares(ctx, e); err != nil {
		return err
	}
	t.group.ExpenseIDs = append(t.group.ExpenseIDs, id)
	return nil
}

func (t *groupTx) ReplaceExpense(ctx context.Context, e *models.Expense) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE expenses SET description = ?, base_cents = ?, discount_cents = ?, service_tax_cents = ?,
			gst_cents = ?, total_cents = ?, paid_by = ?, split_type = ?, date = ?
		WHERE id = ? AND group_id = ?`,
		e.Description, e.BaseAmount.Cents(), e.Discount.Cents(), e.ServiceTax.Cents(),
		e.GST.Cents(), e.TotalAmount.Cents(), e.PaidBy, string(e.SplitType), e.Date,
		e.ID, t.group.ID,
	)
	if err := checkAffected(res, err, e.ID); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", e.ID); err != nil {
		return fmt.Errorf("failed to clear shares: %w", err)
	}
	return t.insertShares(ctx, e)
}

func (t *groupTx) DeleteExpense(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND group_id = ?",
		id, t.group.ID,
	)
	if err := checkAffected(res, err, id); err != nil {
		return err
	}
	for i, eid := range t.group.ExpenseIDs {
		if eid == id {
			t.group.ExpenseIDs = append(t.group.ExpenseIDs[:i], t.group.ExpenseIDs[i+1:]...)
			break
		}
	}
	return nil
}

// insertShares writes one row per group member so member order survives.
func (t *groupTx) insertShares(ctx context.Context, e *models.Expense) error {
	participating := make(map[string]bool, len(e.Participants))
	for _, p := range e.Participants {
		participating[p] = true
	}
	for i, m := range t.group.Members {
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, position, member, share_cents, participant) VALUES (?, ?, ?, ?, ?)",
			e.ID, i, m, e.Shares[m].Cents(), participating[m],
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

func checkAffected(res sql.Result, err error, id int64) error {
	if err != nil {
		return fmt.Errorf("failed to write expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
