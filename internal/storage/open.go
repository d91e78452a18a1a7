package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/repcoach/internal/config"
)

// Open connects to the backend selected by cfg.Driver. PostgreSQL
// migrations are applied before connecting.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("database opened", "driver", cfg.Driver, "path", cfg.Path)
		return s, nil
	case config.DriverPostgres:
		dsn := cfg.DSN()
		if err := RunMigrations(dsn, cfg.Migrations); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		db, err := New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected", "driver", cfg.Driver)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// EnsureDevUser creates the local user that requests are attributed to when
// tailscale identity is off.
func EnsureDevUser(ctx context.Context, s Store) (int, error) {
	id, err := s.GetOrCreateUser(ctx, "local", "Local Dev User")
	if err != nil {
		return 0, fmt.Errorf("creating local user: %w", err)
	}
	return id, nil
}
