package cmd

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/perpstats/perpstats/config"
)

// newLogger builds a zerolog logger from the config's log section.
// Unknown levels fall back to info rather than failing the run.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger()
}
