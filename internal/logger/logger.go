// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"info" json:"level"`
	Format string `long:"format" env:"FORMAT" description:"Log format (console or json)" default:"console" json:"format"`
	Output string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
}

// Setup initializes the global logger based on the provided configuration options.
// A log file that cannot be opened falls back to stderr.
func Setup(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	writer, err := openOutput(cfg.Output)
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		fallback.Error().Err(err).Str("path", cfg.Output).Msg("Failed to open log file, falling back to stderr")
		writer = os.Stderr
	}

	log.Logger = New(cfg.Format, writer)
}

// New builds a logger writing to w in the given format ("json" or console).
func New(format string, w io.Writer) zerolog.Logger {
	if format == "json" {
		return zerolog.New(w).With().Timestamp().Logger()
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	// Colors only for a terminal and when NO_COLOR is not set
	if f, ok := w.(*os.File); !ok || os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
		consoleWriter.NoColor = true
	}

	return zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}

	return l
}

// openOutput resolves the output option to a writer.
func openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	default:
		return os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	}
}

// isTerminal checks if the provided file descriptor refers to a character device (terminal).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
