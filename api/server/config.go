package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/embeddedgames/escrow/api/handlers"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	Logger            *slog.Logger
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	ReadyTimeout      time.Duration
	VersionInfo       VersionInfo
	// AllowedOrigins configures CORS for browser clients. Empty disables
	// CORS headers.
	AllowedOrigins []string
	HandlersConfig handlers.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	if cfg.HandlersConfig.Logger == nil {
		cfg.HandlersConfig.Logger = cfg.Logger
	}
	return cfg.HandlersConfig.Validate()
}
