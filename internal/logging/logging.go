package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures the global logger
type Options struct {
	// Verbose enables debug output; Trace additionally logs every frame.
	Verbose bool
	Trace   bool
	// Format is "console" or "json".
	Format string
	Out    io.Writer
}

// Init initializes the global logger
func Init(opts Options) error {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	switch {
	case opts.Trace:
		level = zerolog.TraceLevel
	case opts.Verbose:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	case "json":
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
