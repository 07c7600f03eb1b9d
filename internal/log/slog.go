package log

import (
	"log/slog"
)

// Logger is an alias for slog.Logger. It is used here so the rest of the
// core never needs to import log/slog directly.
type Logger = slog.Logger
type Handler = slog.Handler

var defaultLogger *Logger = slog.Default()

// SetDefaultLogger specifies the logger to be used by the package when a
// component is not given one of its own.
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// SetDefaultHandler specifies the handler to be used by the package.
//
// It overrides the logger specified by SetDefaultLogger.
func SetDefaultHandler(handler Handler) {
	defaultLogger = slog.New(handler)
}

// GetDefaultLogger returns the package-wide default logger.
func GetDefaultLogger() *Logger {
	return defaultLogger
}

// OrDefault returns logger if non-nil, otherwise the package default.
func OrDefault(logger *Logger) *Logger {
	if logger != nil {
		return logger
	}
	return defaultLogger
}
