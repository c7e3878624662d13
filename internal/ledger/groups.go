package ledger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// GroupDetail is a group with its expenses, newest first.
type GroupDetail struct {
	Group      *models.Group
	Expenses   []*models.Expense
	TotalSpent money.Money
}

// Overview is the dashboard view over all groups.
type Overview struct {
	Groups []*models.Group
	Stats  storage.Stats
}

// SettleUpPlan is the current state of a group's debts.
type SettleUpPlan struct {
	Group        *models.Group
	Balances     calculator.Balances
	Settlements  []calculator.Settlement
	ExpenseCount int
}

// CreateGroup validates and stores a new group. Member names are trimmed and
// blank entries dropped before validation.
func (s *Service) CreateGroup(ctx context.Context, name string, members []string) (*models.Group, error) {
	return s.CreateGroupAt(ctx, name, members, s.now())
}

// CreateGroupAt is CreateGroup with an explicit creation time, for imports.
func (s *Service) CreateGroupAt(ctx context.Context, name string, members []string, createdAt time.Time) (*models.Group, error) {
	g := &models.Group{
		Name:      strings.TrimSpace(name),
		Members:   models.NormalizeMembers(members),
		CreatedAt: createdAt.Unix(),
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	slog.InfoContext(ctx, "Group created", "group_id", g.ID, "members_count", len(g.Members))

	s.publish(ctx, events.GroupCreated, g.ID, 0)
	return g, nil
}

// GetGroup returns a group with its expenses sorted newest first.
func (s *Service) GetGroup(ctx context.Context, id int64) (*GroupDetail, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	detail := &GroupDetail{Group: g, Expenses: expenses}
	for _, e := range expenses {
		detail.TotalSpent += e.TotalAmount
	}
	slices.SortStableFunc(detail.Expenses, func(a, b *models.Expense) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return detail, nil
}

// ListGroups returns every group, newest first, with store-wide stats.
func (s *Service) ListGroups(ctx context.Context) (*Overview, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &Overview{Groups: groups, Stats: stats}, nil
}

// DeleteGroup removes a group together with its expenses.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Group deleted", "group_id", id)

	s.publish(ctx, events.GroupDeleted, id, 0)
	return nil
}

// SettleUp aggregates the group's balances and plans the payments that clear
// them. Balances are listed in member order.
func (s *Service) SettleUp(ctx context.Context, groupID int64) (*SettleUpPlan, error) {
	var plan SettleUpPlan
	var drift money.Money
	err := s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		expenses, err := tx.Expenses(ctx)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		plan.Group = tx.Group()
		plan.ExpenseCount = len(expenses)

		forBalance := make([]calculator.ExpenseForBalance, len(expenses))
		for i, e := range expenses {
			forBalance[i] = e.ForBalance()
		}
		plan.Balances = calculator.AggregateBalances(plan.Group.Members, forBalance)
		drift = calculator.ShareDrift(forBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan.Settlements, err = calculator.SimplifyDebts(plan.Balances, calculator.WithShareDrift(drift))
	if err != nil {
		slog.ErrorContext(ctx, "Balances do not settle", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("group %d: %w", groupID, err)
	}
	s.metrics.SettlementsPlanned(len(plan.Settlements))
	return &plan, nil
}
