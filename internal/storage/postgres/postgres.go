// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx connection pool.
// InGroupTx locks the group row with SELECT ... FOR UPDATE.
type Store struct {
	pool *pgxpool.Pool
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New connects to databaseURL and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO groups (name, created_at) VALUES ($1, $2) RETURNING id`,
		g.Name, g.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i, name := range g.Members {
		_, err = tx.Exec(ctx,
			`INSERT INTO group_members (group_id, position, name) VALUES ($1, $2, $3)`,
			id, i, name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	g.ID = id
	g.ExpenseIDs = nil
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return getGroup(ctx, s.pool, id, false)
}

func getGroup(ctx context.Context, q querier, id int64, lock bool) (*models.Group, error) {
	query := `SELECT id, name, created_at FROM groups WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	g := &models.Group{}
	err := q.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	groups := map[int64]*models.Group{g.ID: g}
	if err := loadMembers(ctx, q, groups, `WHERE group_id = $1`, id); err != nil {
		return nil, err
	}
	if err := loadExpenseIDs(ctx, q, groups, `WHERE group_id = $1`, id); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM groups ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var list []*models.Group
	byID := make(map[int64]*models.Group)
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		list = append(list, g)
		byID[g.ID] = g
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	if err := loadMembers(ctx, s.pool, byID, ""); err != nil {
		return nil, err
	}
	if err := loadExpenseIDs(ctx, s.pool, byID, ""); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	var st storage.Stats
	var spent int64
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM groups), COUNT(*), COALESCE(SUM(total_cents), 0)::BIGINT FROM expenses`,
	).Scan(&st.Groups, &st.Expenses, &spent)
	if err != nil {
		return st, fmt.Errorf("failed to compute stats: %w", err)
	}
	st.TotalSpent = money.FromCents(spent)
	return st, nil
}

func loadMembers(ctx context.Context, q querier, groups map[int64]*models.Group, where string, args ...any) error {
	rows, err := q.Query(ctx,
		`SELECT group_id, name FROM group_members `+where+` ORDER BY group_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID int64
		var name string
		if err := rows.Scan(&groupID, &name); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		if g, ok := groups[groupID]; ok {
			g.Members = append(g.Members, name)
		}
	}
	return rows.Err()
}

func loadExpenseIDs(ctx context.Context, q querier, groups map[int64]*models.Group, where string, args ...any) error {
	rows, err := q.Query(ctx,
		`SELECT group_id, id FROM expenses `+where+` ORDER BY id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID, id int64
		if err := rows.Scan(&groupID, &id); err != nil {
			return fmt.Errorf("failed to scan expense id: %w", err)
		}
		if g, ok := groups[groupID]; ok {
			g.ExpenseIDs = append(g.ExpenseIDs, id)
		}
	}
	return rows.Err()
}

func (s *Store) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	list, err := queryExpenses(ctx, s.pool, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return list[0], nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error) {
	return queryExpenses(ctx, s.pool, `WHERE group_id = $1`, groupID)
}

func queryExpenses(ctx context.Context, q querier, where string, args ...any) ([]*models.Expense, error) {
	rows, err := q.Query(ctx,
		`SELECT id, group_id, description, base_cents, discount_cents, service_tax_cents,
			gst_cents, total_cents, paid_by, split_type, date
		FROM expenses `+where+` ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	var list []*models.Expense
	byID := make(map[int64]*models.Expense)
	for rows.Next() {
		var e models.Expense
		var base, discount, tax, gst, total int64
		var splitType string
		err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &base, &discount, &tax,
			&gst, &total, &e.PaidBy, &splitType, &e.Date)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.BaseAmount = money.FromCents(base)
		e.Discount = money.FromCents(discount)
		e.ServiceTax = money.FromCents(tax)
		e.GST = money.FromCents(gst)
		e.TotalAmount = money.FromCents(total)
		e.SplitType = calculator.SplitType(splitType)
		e.Shares = make(map[string]money.Money)
		list = append(list, &e)
		byID[e.ID] = &e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}

	shareRows, err := q.Query(ctx,
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
		var expenseID, cents int64
		var member string
		var participant bool
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

type groupTx struct {
	tx    pgx.Tx
	group *models.Group
}

func (s *Store) InGroupTx(ctx context.Context, groupID int64, fn func(storage.GroupTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := getGroup(ctx, tx, groupID, true)
	if err != nil {
		return err
	}
	if err := fn(&groupTx{tx: tx, group: g}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *groupTx) Group() *models.Group { return t.group }

func (t *groupTx) Expenses(ctx context.Context) ([]*models.Expense, error) {
	return queryExpenses(ctx, t.tx, `WHERE group_id = $1`, t.group.ID)
}

func (t *groupTx) InsertExpense(ctx context.Context, e *models.Expense) error {
	if e.GroupID != t.group.ID {
		return fmt.Errorf("expense for group %d inserted in group %d", e.GroupID, t.group.ID)
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO expenses (group_id, description, base_cents, discount_cents, service_tax_cents,
			gst_cents, total_cents, paid_by, split_type, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		e.GroupID, e.Description, e.BaseAmount.Cents(), e.Discount.Cents(), e.ServiceTax.Cents(),
		e.GST.Cents(), e.TotalAmount.Cents(), e.PaidBy, string(e.SplitType), e.Date,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	if err := t.insertShares(ctx, e); err != nil {
		return err
	}
	t.group.ExpenseIDs = append(t.group.ExpenseIDs, e.ID)
	return nil
}

func (t *groupTx) ReplaceExpense(ctx context.Context, e *models.Expense) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE expenses SET description = $1, base_cents = $2, discount_cents = $3, service_tax_cents = $4,
			gst_cents = $5, total_cents = $6, paid_by = $7, split_type = $8, date = $9
		WHERE id = $10 AND group_id = $11`,
		e.Description, e.BaseAmount.Cents(), e.Discount.Cents(), e.ServiceTax.Cents(),
		e.GST.Cents(), e.TotalAmount.Cents(), e.PaidBy, string(e.SplitType), e.Date,
		e.ID, t.group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("expense %d: %w", e.ID, storage.ErrNotFound)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM expense_shares WHERE expense_id = $1`, e.ID); err != nil {
		return fmt.Errorf("failed to clear shares: %w", err)
	}
	return t.insertShares(ctx, e)
}

func (t *groupTx) DeleteExpense(ctx context.Context, id int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND group_id = $2`, id, t.group.ID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	for i, eid := range t.group.ExpenseIDs {
		if eid == id {
			t.group.ExpenseIDs = append(t.group.ExpenseIDs[:i], t.group.ExpenseIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (t *groupTx) insertShares(ctx context.Context, e *models.Expense) error {
	participating := make(map[string]bool, len(e.Participants))
	for _, p := range e.Participants {
		participating[p] = true
	}

	batch := &pgx.Batch{}
	for i, m := range t.group.Members {
		batch.Queue(
			`INSERT INTO expense_shares (expense_id, position, member, share_cents, participant) VALUES ($1, $2, $3, $4, $5)`,
			e.ID, i, m, e.Shares[m].Cents(), participating[m],
		)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert shares: %w", err)
	}
	return nil
}
