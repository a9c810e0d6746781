package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stdout. Services attach
// their own component attribute via With.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
