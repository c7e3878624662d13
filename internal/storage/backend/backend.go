// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/postgres"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

// Open returns the configured store with its schema migrated.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", "sqlite", "database", cfg.DBPath)
		return store, nil
	case "postgres":
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", "postgres")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Migrate applies pending migrations without keeping a store open.
func Migrate(cfg *config.Config) error {
	switch cfg.StorageDriver {
	case "sqlite":
		return sqlite.Migrate(cfg.DBPath)
	case "postgres":
		return postgres.Migrate(cfg.DatabaseURL)
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
