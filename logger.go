package tracesim

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with tracesim-specific context.
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
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithTrace adds a trace field to the logger.
func (l *Logger) WithTrace(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("trace", name),
	}
}

// LogRunStart logs the start of a replay.
func (l *Logger) LogRunStart(ctx context.Context, records, dimension, workers int, threshold float32) {
	l.InfoContext(ctx, "replay started",
		"records", records,
		"dimension", dimension,
		"workers", workers,
		"threshold", threshold,
	)
}

// LogRunComplete logs the end of a replay.
func (l *Logger) LogRunComplete(ctx context.Context, records int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "replay failed",
			"kind", KindOf(err).String(),
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "replay completed",
			"records", records,
			"elapsed", elapsed,
		)
	}
}

// LogRecord logs one computed record at debug level.
func (l *Logger) LogRecord(ctx context.Context, worker, slot int, res Result) {
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.DebugContext(ctx, "record evaluated",
		"worker", worker,
		"slot", slot,
		"k", res.Iteration,
		"t", res.Timestamp,
		"fval", res.Objective,
		"nnz", res.SparseCount,
	)
}

// LogReportSaved logs a stored report.
func (l *Logger) LogReportSaved(ctx context.Context, name, digest string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "report save failed",
			"report", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "report saved",
			"report", name,
			"digest", digest,
		)
	}
}
