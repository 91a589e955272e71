// Package log provides a structured logging interface for matprop.
//
// The interface mirrors the method set of log/slog so callers can stay
// independent of the backend. The default backend is zerolog writing JSON
// lines; tests swap in TestLogger through SetProvider.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.TargetKey, "d33 (pC/N)",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Candidate evaluated",
//	    log.ModelNameKey, "XGBoost",
//	    log.R2ScoreKey, 0.91,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. Error accepts an error
// value anywhere in fields; backends attach its stack trace when one is
// available.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("Saving candidate failed",
	//       log.ErrAttrKey, err,
	//       log.TargetKey, target,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields:
	//
	//   if logger.Enabled(ctx, log.LevelDebug) {
	//       logger.Debug("Parsed terms", "terms", chem.ParseTerms(formula))
	//   }
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

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
