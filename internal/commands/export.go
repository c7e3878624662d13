package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/audit"
	"github.com/mmynk/splitledger/internal/export"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/legacy"
)

func newExportCommand(a *app) *cobra.Command {
	var view string
	var output string

	cmd := &cobra.Command{
		Use:   "export <group-id>",
		Short: "Write a group's expenses, balances or settlements as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			v, err := export.ParseView(view)
			if err != nil {
				return err
			}

			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("creating %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return runExport(cmd, l, w, groupID, v)
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", string(export.ViewExpenses), "expenses, balances or settlements")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, l *ledger.Service, w io.Writer, groupID int64, v export.View) error {
	ctx := cmd.Context()
	if v == export.ViewExpenses {
		detail, err := l.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		return export.WriteExpenses(w, detail.Group, detail.Expenses)
	}

	plan, err := l.SettleUp(ctx, groupID)
	if err != nil {
		return err
	}
	if v == export.ViewBalances {
		return export.WriteBalances(w, plan.Balances)
	}
	return export.WriteSettlements(w, plan.Settlements)
}

func newAuditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every group's expenses and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				report, err := audit.New(l, nil).Run(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Audited %d groups, %d expenses in %s\n", report.Groups, report.Expenses, report.Duration)
				for _, v := range report.Violations {
					fmt.Fprintf(out, "  %s\n", v)
				}
				if !report.OK() {
					return fmt.Errorf("audit found %d problems", len(report.Violations))
				}
				return nil
			})
		},
	}
}

func newImportJSONCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-json <data.json>",
		Short: "Import groups and expenses from a legacy data.json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			data, err := legacy.Read(f)
			if err != nil {
				return err
			}

			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				res, err := legacy.Import(cmd.Context(), l, data)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d groups and %d expenses\n", len(res.GroupIDs), len(res.ExpenseIDs))
				for _, s := range res.Skipped {
					fmt.Fprintf(out, "  skipped %s %d: %v\n", s.Kind, s.ID, s.Reason)
				}
				return nil
			})
		},
	}
}
