package parcelcorr

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with parcelcorr-specific context.
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

// WithSubject adds a subject field to the logger.
func (l *Logger) WithSubject(subject string) *Logger {
	return &Logger{
		Logger: l.Logger.With("subject", subject),
	}
}

// WithContrast adds a contrast field to the logger.
func (l *Logger) WithContrast(contrast string) *Logger {
	return &Logger{
		Logger: l.Logger.With("contrast", contrast),
	}
}

// WithParcel adds a parcel field to the logger.
func (l *Logger) WithParcel(parcel string) *Logger {
	return &Logger{
		Logger: l.Logger.With("parcel", parcel),
	}
}

// LogExtract logs a voxel extraction pass.
func (l *Logger) LogExtract(ctx context.Context, files, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "extraction failed",
			"files", files,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "extraction completed",
			"files", files,
			"records", records,
		)
	}
}

// LogPhase logs one similarity phase.
func (l *Logger) LogPhase(ctx context.Context, phase string, values int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "phase failed",
			"phase", phase,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "phase completed",
			"phase", phase,
			"values", values,
			"duration", duration,
		)
	}
}

// LogClassify logs the classification pass.
func (l *Logger) LogClassify(ctx context.Context, labeled int, threshold float64) {
	l.DebugContext(ctx, "classification completed",
		"labeled", labeled,
		"threshold", threshold,
	)
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, filename string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"filename", filename,
		)
	}
}

// LogExport logs a CSV export.
func (l *Logger) LogExport(ctx context.Context, dir string, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "export completed",
			"dir", dir,
			"files", files,
		)
	}
}

// LogUpload logs an archive upload.
func (l *Logger) LogUpload(ctx context.Context, dest string, objects int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed",
			"destination", dest,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "upload completed",
			"destination", dest,
			"objects", objects,
		)
	}
}
