package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/oztfix/pkg/logging"
)

// NewLogger builds the operator-facing logger. Debug and trace levels add
// the caller to every event.
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

// determineLogLevel resolves the level: an explicit --log-level wins, then
// --quiet, then --verbose.
func determineLogLevel(config *Config) string {
	switch {
	case config.LogLevel != "":
		level := knownLevel(config.LogLevel)
		if level != config.LogLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", config.LogLevel, level)
		}
		return level
	case config.Quiet:
		if config.Verbose {
			fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		}
		return "warn"
	case config.Verbose:
		return "debug"
	default:
		return "info"
	}
}

func knownLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	return "info"
}
