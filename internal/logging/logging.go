// Package logging builds the process logger: colour text for development,
// JSON for production.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger writing to w. env is "dev" or "prod".
func New(w io.Writer, env string, level slog.Level, version, app string) *slog.Logger {
	if env != "prod" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  level <= slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", app)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		"app", app,
		"version", version,
		"env", env,
	)
}
