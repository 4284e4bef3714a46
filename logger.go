package omikuji

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with omikuji-specific context.
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

// WithTree adds a tree index field to the logger.
func (l *Logger) WithTree(index int) *Logger {
	return &Logger{
		Logger: l.Logger.With("tree", index),
	}
}

// LogTrainStart logs the beginning of a training run.
func (l *Logger) LogTrainStart(ctx context.Context, examples, features, labels, trees int) {
	l.InfoContext(ctx, "training started",
		"examples", examples,
		"features", features,
		"labels", labels,
		"trees", trees,
	)
}

// LogTreeBuilt logs completion of a single tree build.
func (l *Logger) LogTreeBuilt(ctx context.Context, index int, duration time.Duration) {
	l.DebugContext(ctx, "tree built",
		"tree", index,
		"duration", duration,
	)
}

// LogTrain logs the outcome of a training run.
func (l *Logger) LogTrain(ctx context.Context, trees int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "training failed",
			"trees", trees,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "training completed",
			"trees", trees,
			"duration", duration,
		)
	}
}

// LogPredict logs a prediction request.
func (l *Logger) LogPredict(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "prediction failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "prediction completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogSnapshot logs a model save operation.
func (l *Logger) LogSnapshot(ctx context.Context, filename string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model save failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model saved",
			"filename", filename,
		)
	}
}

// LogLoad logs a model load operation.
func (l *Logger) LogLoad(ctx context.Context, trees int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "model load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model loaded",
			"trees", trees,
		)
	}
}
