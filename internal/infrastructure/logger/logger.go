package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger
	configured   bool
	mu           sync.RWMutex
)

// GetLogger returns the global logger instance
func GetLogger() zerolog.Logger {
	mu.RLock()
	if configured {
		defer mu.RUnlock()
		return globalLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !configured {
		// Default to console output with info level
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		globalLogger = zerolog.New(consoleWriter).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		configured = true
	}
	return globalLogger
}

// New constructs a zerolog logger writing to stdout and installs it as the global logger.
func New(level, format string) (zerolog.Logger, error) {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter is New with an explicit destination. The terminal client logs to stderr so
// chat output on stdout stays clean.
func NewWithWriter(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var writer zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		writer = zerolog.New(out).With().Timestamp().Logger()
	case "console":
		consoleWriter := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
		writer = zerolog.New(consoleWriter).With().Timestamp().Logger()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	mu.Lock()
	globalLogger = writer.Level(lvl)
	configured = true
	mu.Unlock()

	return writer.Level(lvl), nil
}
