// Package logger builds the shared zerolog.Logger used across the service.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/config"
)

// New returns a configured zerolog.Logger.
func New(cfg *config.Config) zerolog.Logger {
	var out zerolog.ConsoleWriter
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
