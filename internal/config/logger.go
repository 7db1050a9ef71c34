package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger configures the global zerolog logger. DEV gets console output,
// every other environment gets JSON.
func NewLogger(c EnvConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if c.GetEnv() == "DEV" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.With().Timestamp().Str("app", c.GetAppName()).Logger()
	log.Logger = logger
	return logger
}
