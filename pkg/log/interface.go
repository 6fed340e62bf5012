// Package log provides the structured logging interface used across the
// training pipeline, the boosting engines and the prediction server.
//
// The Logger interface is slog-shaped (message plus alternating key/value
// fields) so call sites read the same regardless of backend. The default
// backend is zerolog, configured once per process with SetupLogger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.ModelNameKey, "lgbm",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Training finished",
//	    log.RMSEKey, rec.RMSE,
//	    log.CompositeKey, rec.Composite(),
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. A value implementing error is
// logged with its message and, when available, the stack trace recorded by
// cockroachdb/errors. If the first field is an error it is logged under the
// "error" key without needing an explicit key.
type Logger interface {
	// Debug logs detailed diagnostic information, e.g. per-round losses.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs conditions that don't stop the run but deserve attention.
	Warn(msg string, fields ...any)

	// Error logs failures. Pass the error as the first field.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip computing expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. It allows tests to swap the
// process-wide logger for one that captures output.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
