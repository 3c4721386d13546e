package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/embeddedgames/escrow/api/config"
	"github.com/embeddedgames/escrow/program/pkg/store/postgres"
)

// PgMigrateUp runs all pending PostgreSQL migrations
func PgMigrateUp(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	db, err := openPgDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.MigrateUp(ctx, log, db)
}

// PgMigrateDown rolls back the last PostgreSQL migration
func PgMigrateDown(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	db, err := openPgDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.MigrateDown(ctx, log, db)
}

// PgMigrateStatus shows the status of all PostgreSQL migrations
func PgMigrateStatus(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	db, err := openPgDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("PostgreSQL migration status")
	return postgres.MigrateStatus(ctx, log, db)
}

func openPgDB(ctx context.Context, cfg config.PgConfig) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.ConnString())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
