// Package logging provides structured logging for oztfix using zerolog.
// Progress messages for the operator (document sequence numbers, fallback
// identifier warnings, rejected embedded titles) are log events on stderr:
// console output in a terminal, JSON lines otherwise.
//
//	ctx := logging.WithDocument(ctx, "dbnl00001_01")
//	logging.FromContext(ctx).Warn().Str("title_id", "dbnl00001_01_0002").Msg("No metadata found")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/oztfix/pkg/constants"
)

// Config selects the level, format and destination of a logger.
type Config struct {
	// Level is trace, debug, info, warn, error or off
	Level string

	// Format is json, console or auto (console on a terminal)
	Format string

	// Output is stderr, stdout, discard or a file path
	Output string

	NoColor   bool
	AddCaller bool
}

var defaultLogger = NewLoggerFromConfig(&Config{
	Level:   os.Getenv("LOG_LEVEL"),
	Format:  os.Getenv("LOG_FORMAT"),
	NoColor: os.Getenv("NO_COLOR") != "",
})

// Default returns the process-wide logger used when a context carries none.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// NewLoggerFromConfig creates a logger from cfg. Unknown levels fall back to info.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	logger := zerolog.New(writer(cfg)).Level(level).With().Timestamp().Logger()
	if cfg.AddCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

func writer(cfg *Config) io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			out = os.Stderr
		} else {
			out = f
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return out
	case "console", "pretty":
	default:
		if out != os.Stderr || !isTerminal(os.Stderr) {
			return out
		}
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
