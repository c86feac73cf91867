// Package backend selects the storage implementation named by the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/hongminglow/cashjet-be/internal/config"
	"github.com/hongminglow/cashjet-be/internal/storage"
	"github.com/hongminglow/cashjet-be/internal/storage/postgres"
	"github.com/hongminglow/cashjet-be/internal/storage/sqlite"
)

// Open connects to the configured database and returns a ready store.
func Open(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL, postgres.Options{PingTimeout: cfg.StorageTimeout})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath, sqlite.Options{PingTimeout: cfg.StorageTimeout})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
