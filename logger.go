package imgdedup

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with imgdedup-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithCollection adds collection and bit width fields.
func (l *Logger) WithCollection(name string, bitWidth int) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name, "bit_width", bitWidth),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, filename string, codes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"filename", filename,
			"codes", codes,
		)
	}
}

// LogCheck logs a duplicate check.
func (l *Logger) LogCheck(ctx context.Context, filename string, threshold, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "check failed",
			"filename", filename,
			"threshold", threshold,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "check completed",
			"filename", filename,
			"threshold", threshold,
			"matches", matches,
		)
	}
}

// LogLoad logs a collection load.
func (l *Logger) LogLoad(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection load failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "collection loaded",
			"count", count,
		)
	}
}

// LogSave logs a persisted mutation.
func (l *Logger) LogSave(ctx context.Context, added int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection save failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "collection saved",
			"added", added,
		)
	}
}
