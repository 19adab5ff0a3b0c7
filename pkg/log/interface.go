// Package log provides the structured logging interface used across scigo-select.
//
// The interface is slog-compatible so that components never depend on a
// concrete backend. The process-wide backend is zerolog (see zerolog.go);
// tests use TestLogger to capture output in memory.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("automl").With(
//	    log.CandidateKey, "Tree",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("candidate trained",
//	    log.OperationKey, log.OperationFit,
//	    log.TestR2Key, 0.93,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error accepts an error value as the
// first field; backends render it with its stacktrace when one is attached.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-trial search scores.
	Debug(msg string, fields ...any)

	// Info logs general operational information about a run.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run, such as a tolerated
	// candidate failure.
	Warn(msg string, fields ...any)

	// Error logs error conditions.
	//
	// Example:
	//   logger.Error("ledger append failed",
	//       err,
	//       log.PathKey, "/artifacts/history/history.json",
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive fields:
	//
	//   if logger.Enabled(ctx, LevelDebug) {
	//       logger.Debug("fold scores", "scores", foldScores())
	//   }
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
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

// LoggerProvider creates loggers. The process installs one with SetProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
