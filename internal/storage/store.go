// Package storage defines the persistence contract of the ledger.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// ErrNotFound is returned (wrapped) when a group or expense does not exist.
var ErrNotFound = errors.New("not found")

// Stats summarizes everything in the store.
type Stats struct {
	Groups     int64
	Expenses   int64
	TotalSpent money.Money
}

// Store defines the interface for group and expense storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the ledger service.
type Store interface {
	// CreateGroup persists a new group. g.ID and g.CreatedAt are populated
	// by the store; CreatedAt is kept if already set.
	CreateGroup(ctx context.Context, g *models.Group) error

	// GetGroup retrieves a group with its members and expense IDs.
	GetGroup(ctx context.Context, id int64) (*models.Group, error)

	// ListGroups returns all groups, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// DeleteGroup removes a group and all of its expenses.
	DeleteGroup(ctx context.Context, id int64) error

	// GetExpense retrieves a single expense with its shares.
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)

	// ListExpenses returns a group's expenses in insertion order.
	ListExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error)

	// InGroupTx runs fn inside a transaction that holds the group exclusively.
	// Concurrent InGroupTx calls for the same group are serialized; if fn
	// returns an error nothing it wrote is kept.
	InGroupTx(ctx context.Context, groupID int64, fn func(tx GroupTx) error) error

	// Stats returns store-wide counters.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// GroupTx is the read-modify-write view of one group handed to InGroupTx.
type GroupTx interface {
	// Group returns the locked group as it was when the transaction began.
	Group() *models.Group

	// Expenses returns the group's current expenses in insertion order,
	// including writes made earlier in the same transaction.
	Expenses(ctx context.Context) ([]*models.Expense, error)

	// InsertExpense stores a new expense and populates e.ID.
	InsertExpense(ctx context.Context, e *models.Expense) error

	// ReplaceExpense overwrites every field of an existing expense of the group.
	ReplaceExpense(ctx context.Context, e *models.Expense) error

	// DeleteExpense removes an expense of the group.
	DeleteExpense(ctx context.Context, id int64) error
}
