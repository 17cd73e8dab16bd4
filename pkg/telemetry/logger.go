// Package telemetry configures diagnostics for the tool: structured logging
// and optional trace export. User-facing interaction text does not go through
// here; this is for operators debugging the engine.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Format is "console" for human-readable output or "json". Defaults to
	// console, since the tool is interactive.
	Format string

	// Output defaults to stderr so diagnostics never interleave with the
	// interactive prompt stream on stdout.
	Output io.Writer
}

// NewLogger creates a zerolog logger from cfg.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if cfg.Format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}
	}

	return zerolog.New(writer).
		With().Timestamp().Logger().
		Level(parseLogLevel(cfg.Level))
}

// NewComponentLogger creates a child logger tagged with a component name.
func NewComponentLogger(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
