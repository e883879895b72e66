package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Verbose lowers the level to debug.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler)
}

// SetupDefault installs the process logger as the slog default.
func SetupDefault(verbose bool) {
	slog.SetDefault(NewLogger(verbose))
}
