package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dinner(groupID int64) *models.Expense {
	return &models.Expense{
		GroupID:      groupID,
		Description:  "Dinner",
		BaseAmount:   9000,
		TotalAmount:  9000,
		PaidBy:       "Alice",
		SplitType:    calculator.SplitEqual,
		Participants: []string{"Alice", "Bob", "Charlie"},
		Shares:       map[string]money.Money{"Alice": 3000, "Bob": 3000, "Charlie": 3000},
		Date:         1700000000,
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Members: []string{"Charlie", "Alice", "Bob"}}

	t.Run("CreateGroup assigns ID and timestamp", func(t *testing.T) {
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == 0 {
			t.Error("Expected group ID to be assigned")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetGroup keeps member order", func(t *testing.T) {
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		want := []string{"Charlie", "Alice", "Bob"}
		if len(got.Members) != len(want) {
			t.Fatalf("Members = %v, want %v", got.Members, want)
		}
		for i := range want {
			if got.Members[i] != want[i] {
				t.Errorf("Members[%d] = %q, want %q", i, got.Members[i], want[i])
			}
		}
	})

	t.Run("InGroupTx inserts expense with shares", func(t *testing.T) {
		e := dinner(group.ID)
		e.Participants = []string{"Alice", "Bob"}
		e.Shares = map[string]money.Money{"Alice": 4500, "Bob": 4500, "Charlie": 0}

		err := store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
			return tx.InsertExpense(ctx, e)
		})
		if err != nil {
			t.Fatalf("InGroupTx failed: %v", err)
		}
		if e.ID == 0 {
			t.Fatal("Expected expense ID to be assigned")
		}

		got, err := store.GetExpense(ctx, e.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.TotalAmount != 9000 || got.PaidBy != "Alice" || got.SplitType != calculator.SplitEqual {
			t.Errorf("GetExpense = %+v", got)
		}
		if got.Shares["Charlie"] != 0 || got.Shares["Bob"] != 4500 {
			t.Errorf("Shares = %v", got.Shares)
		}
		if _, ok := got.Shares["Charlie"]; !ok {
			t.Error("Expected explicit zero share for non-participant")
		}
		if len(got.Participants) != 2 || got.Participants[0] != "Alice" || got.Participants[1] != "Bob" {
			t.Errorf("Participants = %v, want [Alice Bob] in group order", got.Participants)
		}

		g, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(g.ExpenseIDs) != 1 || g.ExpenseIDs[0] != e.ID {
			t.Errorf("ExpenseIDs = %v, want [%d]", g.ExpenseIDs, e.ID)
		}
	})

	t.Run("failed transaction writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
			if err := tx.InsertExpense(ctx, dinner(group.ID)); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("InGroupTx error = %v, want boom", err)
		}

		list, err := store.ListExpenses(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("ListExpenses returned %d expenses, want 1", len(list))
		}
	})

	t.Run("ReplaceExpense and DeleteExpense", func(t *testing.T) {
		e := dinner(group.ID)
		err := store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
			if err := tx.InsertExpense(ctx, e); err != nil {
				return err
			}
			e.Description = "Late dinner"
			e.PaidBy = "Bob"
			return tx.ReplaceExpense(ctx, e)
		})
		if err != nil {
			t.Fatalf("InGroupTx failed: %v", err)
		}

		got, err := store.GetExpense(ctx, e.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Description != "Late dinner" || got.PaidBy != "Bob" {
			t.Errorf("Replaced expense = %+v", got)
		}

		err = store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
			return tx.DeleteExpense(ctx, e.ID)
		})
		if err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense after delete error = %v, want ErrNotFound", err)
		}

		err = store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
			return tx.DeleteExpense(ctx, e.ID)
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteExpense error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		st, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if st.Groups != 1 || st.Expenses != 1 || st.TotalSpent != 9000 {
			t.Errorf("Stats = %+v", st)
		}
	})

	t.Run("DeleteGroup cascades", func(t *testing.T) {
		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetGroup after delete error = %v, want ErrNotFound", err)
		}
		st, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if st.Expenses != 0 {
			t.Errorf("Expected expenses to cascade, %d left", st.Expenses)
		}
		if err := store.DeleteGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteGroup error = %v, want ErrNotFound", err)
		}
	})

	t.Run("InGroupTx on missing group", func(t *testing.T) {
		err := store.InGroupTx(ctx, 9999, func(tx storage.GroupTx) error { return nil })
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("InGroupTx error = %v, want ErrNotFound", err)
		}
	})
}

func TestListGroupsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Old", "Middle", "New"} {
		g := &models.Group{Name: name, Members: []string{"A", "B"}, CreatedAt: int64(1000 + i)}
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	groups, err := store.ListGroups(ctx)
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("ListGroups returned %d groups, want 3", len(groups))
	}
	for i, want := range []string{"New", "Middle", "Old"} {
		if groups[i].Name != want {
			t.Errorf("groups[%d] = %q, want %q", i, groups[i].Name, want)
		}
		if len(groups[i].Members) != 2 {
			t.Errorf("groups[%d] has members %v", i, groups[i].Members)
		}
	}
}

func TestInGroupTxSerializesWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Busy", Members: []string{"Alice", "Bob", "Charlie"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.InGroupTx(ctx, group.ID, func(tx storage.GroupTx) error {
				return tx.InsertExpense(ctx, dinner(group.ID))
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent InGroupTx failed: %v", err)
		}
	}

	g, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(g.ExpenseIDs) != writers {
		t.Errorf("ExpenseIDs has %d entries, want %d", len(g.ExpenseIDs), writers)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	if err := Migrate(path); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if err := Migrate(path); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
