package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func newLedger(t *testing.T) *ledger.Service {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return ledger.New(store)
}

func TestRunCleanLedger(t *testing.T) {
	svc := newLedger(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "Trip", []string{"A", "B", "C"})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, g.ID, ledger.ExpenseInput{
		Description:  "Dinner",
		Adjustments:  ledger.Adjustments{Base: money.MustParse("100")},
		PaidBy:       "A",
		SplitType:    calculator.SplitEqual,
		Participants: []string{"A", "B", "C"},
	})
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, "Empty", []string{"X", "Y"})
	require.NoError(t, err)

	m := metrics.New()
	report, err := New(svc, m).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 1, report.Expenses)
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(auditMetrics(1, 0)),
		"splitledger_audit_runs_total", "splitledger_audit_invariant_violations_total"))
}

func auditMetrics(runs, violations int) string {
	return fmt.Sprintf(`
# HELP splitledger_audit_invariant_violations_total Problems found by ledger audits.
# TYPE splitledger_audit_invariant_violations_total counter
splitledger_audit_invariant_violations_total %d
# HELP splitledger_audit_runs_total Completed ledger audits.
# TYPE splitledger_audit_runs_total counter
splitledger_audit_runs_total %d
`, violations, runs)
}

func TestRunReportsCorruptedGroup(t *testing.T) {
	svc := newLedger(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "Broken", []string{"A", "B"})
	require.NoError(t, err)

	// Bypass the ledger so the stored shares only cover half the total.
	err = svc.Store().InGroupTx(ctx, g.ID, func(tx storage.GroupTx) error {
		return tx.InsertExpense(ctx, &models.Expense{
			GroupID:      g.ID,
			Description:  "Half recorded",
			BaseAmount:   9000,
			TotalAmount:  9000,
			PaidBy:       "A",
			SplitType:    calculator.SplitCustom,
			Participants: []string{"A", "B"},
			Shares:       map[string]money.Money{"A": 4500, "B": 0},
			Date:         time.Now().Unix(),
		})
	})
	require.NoError(t, err)

	m := metrics.New()
	report, err := New(svc, m).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Violations, 2)
	assert.False(t, report.OK())

	assert.NotZero(t, report.Violations[0].ExpenseID)
	assert.ErrorIs(t, report.Violations[0].Err, calculator.ErrShareMismatch)
	assert.Zero(t, report.Violations[1].ExpenseID)
	assert.ErrorIs(t, report.Violations[1].Err, calculator.ErrBalanceInvariant)
	assert.Contains(t, report.Violations[1].String(), "Broken")
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(auditMetrics(1, 2)),
		"splitledger_audit_runs_total", "splitledger_audit_invariant_violations_total"))
}

// deletingStore removes one group partway through a read, like a
// DeleteGroup call committing while the audit runs.
type deletingStore struct {
	storage.Store
	groupID int64
	// afterExpenses deletes the group once its expenses were listed instead
	// of right after the groups were listed.
	afterExpenses bool
}

func (s *deletingStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.Store.ListGroups(ctx)
	if err == nil && !s.afterExpenses {
		err = s.Store.DeleteGroup(ctx, s.groupID)
	}
	return groups, err
}

func (s *deletingStore) ListExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error) {
	expenses, err := s.Store.ListExpenses(ctx, groupID)
	if err == nil && s.afterExpenses && groupID == s.groupID {
		err = s.Store.DeleteGroup(ctx, groupID)
	}
	return expenses, err
}

func TestRunSkipsGroupsDeletedMidRun(t *testing.T) {
	for _, afterExpenses := range []bool{false, true} {
		t.Run(fmt.Sprintf("after expenses %v", afterExpenses), func(t *testing.T) {
			store, err := sqlite.New(filepath.Join(t.TempDir(), "audit.db"))
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			ctx := context.Background()

			setup := ledger.New(store)
			gone, err := setup.CreateGroup(ctx, "Gone", []string{"A", "B"})
			require.NoError(t, err)
			kept, err := setup.CreateGroup(ctx, "Kept", []string{"A", "B"})
			require.NoError(t, err)
			for _, g := range []int64{gone.ID, kept.ID} {
				_, err = setup.AddExpense(ctx, g, ledger.ExpenseInput{
					Description:  "Lunch",
					Adjustments:  ledger.Adjustments{Base: money.MustParse("20")},
					PaidBy:       "A",
					SplitType:    calculator.SplitEqual,
					Participants: []string{"A", "B"},
				})
				require.NoError(t, err)
			}

			svc := ledger.New(&deletingStore{Store: store, groupID: gone.ID, afterExpenses: afterExpenses})
			m := metrics.New()
			report, err := New(svc, m).Run(ctx)
			require.NoError(t, err)
			assert.True(t, report.OK())
			assert.Equal(t, 1, report.Groups)
			assert.Equal(t, 1, report.Expenses)
			assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(auditMetrics(1, 0)),
				"splitledger_audit_runs_total", "splitledger_audit_invariant_violations_total"))
		})
	}
}

func TestRunCanceled(t *testing.T) {
	svc := newLedger(t)
	_, err := svc.CreateGroup(context.Background(), "Trip", []string{"A", "B"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(svc, nil).Run(ctx)
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	svc := newLedger(t)
	m := metrics.New()
	c := cron.New()

	_, err := Schedule(context.Background(), c, "not a schedule", New(svc, m))
	assert.Error(t, err)

	id, err := Schedule(context.Background(), c, "@every 1h", New(svc, m))
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)

	c.Entry(id).Job.Run()
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(auditMetrics(1, 0)),
		"splitledger_audit_runs_total", "splitledger_audit_invariant_violations_total"))
}
