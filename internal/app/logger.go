package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Deployed environments set
// LOG_FORMAT=json; everything else gets the readable text handler. Every
// line carries the service name so shared log sinks stay attributable.
func NewLogger(cfg *Config) *slog.Logger {
	var h slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	return slog.New(h).With(slog.String("service", "sige"))
}
