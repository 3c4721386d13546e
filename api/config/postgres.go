package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/embeddedgames/escrow/program/pkg/store/postgres"
)

// PgConfig holds the PostgreSQL configuration
type PgConfig struct {
	Host          string
	Port          string
	Database      string
	Username      string
	Password      string
	SSLMode       string
	RunMigrations bool
}

// PostgresFromEnv reads the POSTGRES_* environment variables.
func PostgresFromEnv() (PgConfig, error) {
	return postgresFromLookup(os.Getenv)
}

func postgresFromLookup(getenv func(string) string) (PgConfig, error) {
	cfg := PgConfig{
		Host:          getenv("POSTGRES_HOST"),
		Port:          getenv("POSTGRES_PORT"),
		Database:      getenv("POSTGRES_DB"),
		Username:      getenv("POSTGRES_USER"),
		Password:      getenv("POSTGRES_PASSWORD"),
		SSLMode:       getenv("POSTGRES_SSLMODE"),
		RunMigrations: getenv("POSTGRES_RUN_MIGRATIONS") == "true",
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.Database == "" {
		return PgConfig{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.Username == "" {
		return PgConfig{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.Password == "" {
		return PgConfig{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	return cfg, nil
}

// ConnString returns the postgres:// URL for cfg.
func (cfg PgConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// OpenPostgres connects a pool and, when enabled, applies migrations first.
func OpenPostgres(ctx context.Context, log *slog.Logger, cfg PgConfig) (*pgxpool.Pool, error) {
	log.Info("connecting to postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database, "username", cfg.Username)

	if cfg.RunMigrations {
		db, err := postgres.OpenDB(cfg.ConnString())
		if err != nil {
			return nil, err
		}
		err = postgres.MigrateUp(ctx, log, db)
		db.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("connected to postgres")
	return pool, nil
}
