package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog that the rest of the application
// depends on. It keeps handler selection (JSON in production, human-readable
// text in development) in one place.
type Logger struct {
	sl *slog.Logger
}

// NewLogger creates a logger. Development mode uses a text handler with debug
// level enabled; production mode emits JSON at info level.
func NewLogger(isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{sl: slog.New(handler)}
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{sl: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Debug logs a debug message with key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

// Info logs an informational message with key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

// Error logs an error message with key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.sl.Error(msg, args...)
}

// Log logs at an arbitrary level; the request middleware uses it to pick the
// level from the response status.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.sl.Log(ctx, level, msg, args...)
}

// WithFields returns a child logger that always includes the given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{sl: l.sl.With(args...)}
}

// With returns a child logger with the given key-value pairs attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{sl: l.sl.With(args...)}
}
