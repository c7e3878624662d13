// Package commands implements the splitledger admin CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/storage/backend"
	"github.com/mmynk/splitledger/pkg/logging"
)

// app carries what every subcommand needs.
type app struct {
	cfg *config.Config

	// flag overrides
	driver string
	dbPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "splitledger",
		Short: "Administer a splitledger database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.driver != "" {
				cfg.StorageDriver = a.driver
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.SetupWith(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
			a.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.driver, "driver", "", "storage driver (sqlite or postgres); overrides STORAGE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path; overrides DB_PATH")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newGroupsCommand(a),
		newBalancesCommand(a),
		newSettleCommand(a),
		newExportCommand(a),
		newAuditCommand(a),
		newImportJSONCommand(a),
	)

	return rootCmd
}

// withLedger opens the configured store, runs fn and closes the store.
func (a *app) withLedger(ctx context.Context, fn func(l *ledger.Service) error) error {
	store, err := backend.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	return fn(ledger.New(store, ledger.WithRemainderPolicy(a.cfg.RemainderPolicy)))
}
