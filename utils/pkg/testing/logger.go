package escrowtesting

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger returns the logger used by tests. Only errors are written unless
// ESCROW_TEST_LOG is set to "info" or "debug".
func NewLogger() *slog.Logger {
	level := slog.LevelError
	switch strings.ToLower(os.Getenv("ESCROW_TEST_LOG")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		NoColor:    true,
		TimeFormat: time.TimeOnly,
	}))
}
