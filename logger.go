package stitchgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with stitchgo-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithItem adds a work item ID field to the logger.
func (l *Logger) WithItem(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("item", id),
	}
}

// WithRow adds a row index field to the logger.
func (l *Logger) WithRow(row int) *Logger {
	return &Logger{
		Logger: l.Logger.With("row", row),
	}
}

// LogGenerate logs a completed pattern generation.
func (l *Logger) LogGenerate(ctx context.Context, vertices, rows, failed int, elapsed time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "generate failed",
			"vertices", vertices,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "generate completed with failed rows",
			"vertices", vertices,
			"rows", rows,
			"failed", failed,
			"elapsed", elapsed,
		)
	default:
		l.InfoContext(ctx, "generate completed",
			"vertices", vertices,
			"rows", rows,
			"elapsed", elapsed,
		)
	}
}

// LogRowSolve logs one column solve.
func (l *Logger) LogRowSolve(ctx context.Context, row, vertices, iterations int, err error) {
	if err != nil {
		l.WarnContext(ctx, "row solve failed",
			"row", row,
			"vertices", vertices,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "row solve completed",
			"row", row,
			"vertices", vertices,
			"iterations", iterations,
		)
	}
}

// LogDegenerate logs row vertices whose gradient could not be estimated.
func (l *Logger) LogDegenerate(ctx context.Context, row, count int) {
	l.WarnContext(ctx, "degenerate geometry",
		"row", row,
		"vertices", count,
	)
}

// LogItem logs a processed work item.
func (l *Logger) LogItem(ctx context.Context, id, status string, rows, failed int, elapsed time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "item failed",
			"item", id,
			"status", status,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "item processed with failed rows",
			"item", id,
			"status", status,
			"rows", rows,
			"failed", failed,
			"elapsed", elapsed,
		)
	default:
		l.InfoContext(ctx, "item processed",
			"item", id,
			"status", status,
			"rows", rows,
			"elapsed", elapsed,
		)
	}
}
