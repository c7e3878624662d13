// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// The pool is capped at one connection, so every transaction runs alone and
// InGroupTx is serializable without row locks. Code holding a transaction
// must not touch s.db until it commits.
type SQLiteStore struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// New creates a new SQLiteStore with the given database path.
// Migrations run automatically and create the parent directories.
func New(dbPath string) (*SQLiteStore, error) {
	if err := Migrate(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateGroup persists a new group with its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO groups (name, created_at) VALUES (?, ?)",
		g.Name, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read group id: %w", err)
	}

	for i, name := range g.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, position, name) VALUES (?, ?, ?)",
			id, i, name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	g.ID = id
	g.ExpenseIDs = nil
	return nil
}

// GetGroup retrieves a group by ID, including members and expense IDs.
func (s *SQLiteStore) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return getGroup(ctx, s.db, id)
}

func getGroup(ctx context.Context, q querier, id int64) (*models.Group, error) {
	g := &models.Group{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = ?",
		id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	groups := map[int64]*models.Group{g.ID: g}
	if err := loadMembers(ctx, q, groups, "WHERE group_id = ?", id); err != nil {
		return nil, err
	}
	if err := loadExpenseIDs(ctx, q, groups, "WHERE group_id = ?", id); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroups returns all groups, newest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM groups ORDER BY created_at DESC, id DESC",
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
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	if err := loadMembers(ctx, s.db, byID, ""); err != nil {
		return nil, err
	}
	if err := loadExpenseIDs(ctx, s.db, byID, ""); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteGroup removes a group. Members and expenses cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// Stats counts groups and expenses and sums every expense total.
func (s *SQLiteStore) Stats(ctx context.Context) (storage.Stats, error) {
	var st storage.Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups").Scan(&st.Groups); err != nil {
		return st, fmt.Errorf("failed to count groups: %w", err)
	}
	var spent int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_cents), 0) FROM expenses",
	).Scan(&st.Expenses, &spent)
	if err != nil {
		return st, fmt.Errorf("failed to count expenses: %w", err)
	}
	st.TotalSpent = money.FromCents(spent)
	return st, nil
}

// loadMembers fills Members of the given groups in position order.
// Rows for groups outside the map are skipped.
func loadMembers(ctx context.Context, q querier, groups map[int64]*models.Group, where string, args ...any) error {
	rows, err := q.QueryContext(ctx,
		"SELECT group_id, name FROM group_members "+where+" ORDER BY group_id, position",
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
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}
	return nil
}

func loadExpenseIDs(ctx context.Context, q querier, groups map[int64]*models.Group, where string, args ...any) error {
	rows, err := q.QueryContext(ctx,
		"SELECT group_id, id FROM expenses "+where+" ORDER BY id",
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
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense ids: %w", err)
	}
	return nil
}
