package knowspace

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with knowspace-specific context.
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

// WithWorkspace adds a workspace field to the logger.
func (l *Logger) WithWorkspace(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("workspace", key),
	}
}

// WithDocument adds a document id field to the logger.
func (l *Logger) WithDocument(docID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("doc_id", docID),
	}
}

// LogIngest logs an ingestion operation.
func (l *Logger) LogIngest(ctx context.Context, workspace, filename string, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"workspace", workspace,
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "ingest completed",
			"workspace", workspace,
			"filename", filename,
			"chunks", chunks,
		)
	}
}

// LogQuery logs a retrieval operation.
func (l *Logger) LogQuery(ctx context.Context, workspace string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"workspace", workspace,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"workspace", workspace,
			"results", results,
		)
	}
}

// LogRemove logs a document removal.
func (l *Logger) LogRemove(ctx context.Context, workspace, docID string, removed bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"workspace", workspace,
			"doc_id", docID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "remove completed",
			"workspace", workspace,
			"doc_id", docID,
			"removed", removed,
		)
	}
}
