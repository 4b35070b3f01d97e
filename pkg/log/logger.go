// Package log wraps log/slog with a process-wide logger so that every layer
// of dcman logs through the same handler without threading a *slog.Logger
// everywhere.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.RWMutex
)

// ParseLevel converts a string log level to a slog.Level.
// Valid values are "debug", "info", "warn", "error"; anything else
// defaults to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init configures the logger with the given level, replacing any previously
// configured instance. Logs are written as text to stderr so that stdout
// stays free for program output.
func Init(level string) {
	InitWithWriter(level, os.Stderr)
}

// InitWithWriter is Init with an explicit destination. Tests use it to
// capture output.
func InitWithWriter(level string, w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(handler)
}

// Get returns the configured logger, lazily creating an info-level one when
// Init has not been called yet.
func Get() *slog.Logger {
	mu.RLock()
	if logger != nil {
		defer mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return logger
}

// Debug logs a message at Debug level.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Info logs a message at Info level.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs a message at Warn level.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs a message at Error level.
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// Errorf logs a formatted message at Error level and returns it as an error,
// so call sites can log and propagate in one step.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	Get().Error(err.Error())
	return err
}

// Fatalf logs a formatted message and exits.
func Fatalf(format string, args ...any) {
	Get().Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
