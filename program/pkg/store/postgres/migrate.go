package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// OpenDB opens a database/sql handle for running migrations.
func OpenDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	return db, nil
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	migrations, err := fs.Sub(EmbedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}
	log.Info("store/postgres: running migrations (up)")
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, res := range results {
		log.Debug("store/postgres: applied migration", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration)
	}
	log.Info("store/postgres: migrations completed", "applied", len(results))
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}
	log.Info("store/postgres: rolling back migration (down)")
	res, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	log.Info("store/postgres: migration rollback completed", "version", res.Source.Version)
	return nil
}

// MigrateStatus logs the state of every migration.
func MigrateStatus(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	for _, st := range statuses {
		if st.State == goose.StateApplied {
			log.Info("migration", "version", st.Source.Version, "path", st.Source.Path, "state", st.State, "applied_at", st.AppliedAt)
		} else {
			log.Info("migration", "version", st.Source.Version, "path", st.Source.Path, "state", st.State)
		}
	}
	return nil
}
