// Package audit periodically re-checks every group in the ledger.
//
// A run re-validates each stored expense against its group and recomputes the
// group's settle-up plan. Groups whose balances no longer settle are reported
// as violations; nothing is repaired.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Violation is one problem found in a group.
type Violation struct {
	GroupID   int64
	GroupName string
	// ExpenseID is zero for group-level problems.
	ExpenseID int64
	Err       error
}

func (v Violation) String() string {
	if v.ExpenseID != 0 {
		return fmt.Sprintf("group %d (%s) expense %d: %v", v.GroupID, v.GroupName, v.ExpenseID, v.Err)
	}
	return fmt.Sprintf("group %d (%s): %v", v.GroupID, v.GroupName, v.Err)
}

// Report is the outcome of one audit run.
type Report struct {
	StartedAt  time.Time
	Duration   time.Duration
	Groups     int
	Expenses   int
	Violations []Violation
}

// OK reports whether the run found nothing wrong.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Auditor checks the ledger of a ledger.Service.
type Auditor struct {
	ledger  *ledger.Service
	metrics *metrics.Metrics
}

// New creates an Auditor. m may be nil.
func New(svc *ledger.Service, m *metrics.Metrics) *Auditor {
	return &Auditor{ledger: svc, metrics: m}
}

// Run audits every group once. The returned error is only set when the
// ledger cannot be read; violations are part of the report.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	overview, err := a.ledger.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	for _, g := range overview.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		violations, expenses, err := a.auditGroup(ctx, g)
		if errors.Is(err, storage.ErrNotFound) {
			slog.DebugContext(ctx, "Group deleted during audit", "group_id", g.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		report.Groups++
		report.Expenses += expenses
		report.Violations = append(report.Violations, violations...)
	}

	report.Duration = time.Since(report.StartedAt)
	a.metrics.AuditCompleted(len(report.Violations))

	for _, v := range report.Violations {
		slog.ErrorContext(ctx, "Audit violation", "group_id", v.GroupID, "expense_id", v.ExpenseID, "error", v.Err)
	}
	slog.InfoContext(ctx, "Audit completed",
		"groups", report.Groups,
		"expenses", report.Expenses,
		"violations", len(report.Violations),
		"duration", report.Duration,
	)
	return report, nil
}

// auditGroup checks one group. A group deleted while it is being audited
// yields storage.ErrNotFound.
func (a *Auditor) auditGroup(ctx context.Context, g *models.Group) ([]Violation, int, error) {
	detail, err := a.ledger.GetGroup(ctx, g.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("group %d: %w", g.ID, err)
	}

	var violations []Violation
	for _, e := range detail.Expenses {
		if err := e.Validate(detail.Group); err != nil {
			violations = append(violations, Violation{
				GroupID:   g.ID,
				GroupName: g.Name,
				ExpenseID: e.ID,
				Err:       err,
			})
		}
	}

	if _, err := a.ledger.SettleUp(ctx, g.ID); err != nil {
		if !errors.Is(err, calculator.ErrBalanceInvariant) {
			return nil, 0, err
		}
		violations = append(violations, Violation{GroupID: g.ID, GroupName: g.Name, Err: err})
	}
	return violations, len(detail.Expenses), nil
}

// Schedule registers a on c using a standard cron spec or a descriptor such
// as "@every 1h". Runs never overlap; a run still in progress when the next
// one is due makes the scheduler skip it.
func Schedule(ctx context.Context, c *cron.Cron, spec string, a *Auditor) (cron.EntryID, error) {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if _, err := a.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "Audit failed", "error", err)
		}
	}))
	id, err := c.AddJob(spec, job)
	if err != nil {
		return 0, fmt.Errorf("schedule audit %q: %w", spec, err)
	}
	return id, nil
}
