// Package logging configures zerolog for the exporter.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every request and page.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs run summaries and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs failed requests and pages carrying errorCodes.
	LevelWarn LogLevel = "warn"

	// LevelError logs run failures only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	// Stdout is left to sinks that print items.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLogLevel validates a level given on the command line.
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(strings.ToLower(s)) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return LogLevel(strings.ToLower(s)), nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow
//   - Search request sent (shape, has_cursor, limit)
//   - Page received / fetched (edges, has_next_page, end_cursor)
//   - Item written (key, bytes)
//
// Info: run events
//   - Export complete (written, size, duration)
//   - Metrics listener started
//
// Warn: conditions the run continues through or fails on
//   - Search request failed (error_class, status)
//   - Search page reported error codes
//   - Page guard reached
//
// Error: the run failed and the process exits non-zero
//
// Components: omnivore-client, pagination, export, cli
