package commands

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage/backend"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backend.Migrate(a.cfg); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", a.cfg.StorageDriver)
			return nil
		},
	}
}

func newGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List groups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				overview, err := l.ListGroups(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tMEMBERS\tEXPENSES\tCREATED")
				for _, g := range overview.Groups {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
						g.ID, g.Name, strings.Join(g.Members, ", "), len(g.ExpenseIDs),
						time.Unix(g.CreatedAt, 0).Format("2006-01-02"))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d groups, %d expenses, %s spent\n",
					overview.Stats.Groups, overview.Stats.Expenses, overview.Stats.TotalSpent)
				return nil
			})
		},
	}
}

func newBalancesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Show each member's net balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				plan, err := l.SettleUp(cmd.Context(), groupID)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "MEMBER\tPAID\tOWED\tNET\t")
				for _, b := range plan.Balances {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", b.Member, b.TotalPaid, b.TotalOwed, b.Net)
				}
				return tw.Flush()
			})
		},
	}
}

func newSettleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <group-id>",
		Short: "Show the payments that settle a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), func(l *ledger.Service) error {
				plan, err := l.SettleUp(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(plan.Settlements) == 0 {
					fmt.Fprintf(out, "%s is settled up\n", plan.Group.Name)
					return nil
				}
				for _, s := range plan.Settlements {
					fmt.Fprintf(out, "%s pays %s %s\n", s.From, s.To, s.Amount)
				}
				return nil
			})
		},
	}
}

func parseGroupID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid group id %q", s)
	}
	return id, nil
}
