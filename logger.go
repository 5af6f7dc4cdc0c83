package seqalloc

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with seqalloc-specific context.
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

// WithGoroutine adds a goroutine id field to the logger.
func (l *Logger) WithGoroutine(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("goroutine", id),
	}
}

// WithBlock adds block id and size fields to the logger.
func (l *Logger) WithBlock(id uint32, size uintptr) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", id, "size", size),
	}
}

// LogBlockAcquire logs a block acquisition.
func (l *Logger) LogBlockAcquire(size uintptr, err error) {
	ctx := context.Background()
	if err != nil {
		l.ErrorContext(ctx, "block acquisition failed",
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "block acquired",
			"size", size,
		)
	}
}

// LogDonation logs a chain donated to the orphan registry.
func (l *Logger) LogDonation(goroutine uint64, blocks int) {
	l.DebugContext(context.Background(), "chain donated",
		"goroutine", goroutine,
		"blocks", blocks,
	)
}

// LogDrain logs the final release of the orphan registry.
func (l *Logger) LogDrain(blocks int, bytes uint64, failures int) {
	ctx := context.Background()
	if failures > 0 {
		l.WarnContext(ctx, "drain completed with failures",
			"blocks", blocks,
			"bytes", bytes,
			"failed", failures,
		)
	} else {
		l.InfoContext(ctx, "drain completed",
			"blocks", blocks,
			"bytes", bytes,
		)
	}
}

// LogUnmapFailure logs a block that could not be returned to the operating system.
func (l *Logger) LogUnmapFailure(err error) {
	l.ErrorContext(context.Background(), "unmap failed",
		"error", err,
	)
}

// LogSpawnRejected logs a spawn refused for lack of start slots.
func (l *Logger) LogSpawnRejected(slots int) {
	l.WarnContext(context.Background(), "spawn rejected",
		"slots", slots,
	)
}
