// Package logger provides the leveled logging facility used across OMTX-Hub.
// It wraps the standard `log` package and filters messages by a global level
// that is configured once at startup from the application configuration.
package logger

import (
	"log"
	"strings"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug enables detailed diagnostic output, including per-job
	// polling and submission traces.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level for lifecycle events (batch created,
	// job completed, reconciliation finished).
	LevelInfo
	// LevelWarn is used for recoverable anomalies (transient poll errors,
	// missing result artifacts).
	LevelWarn
	// LevelError is used for failures that abort an operation.
	LevelError
	// LevelFatal terminates the process after logging.
	LevelFatal
)

// logLevel is the currently set global log level. Only messages at or above
// this level are emitted.
var logLevel = LevelInfo

// SetLogLevel sets the global log level. Valid values are "DEBUG", "INFO",
// "WARN", "ERROR" and "FATAL" (case-insensitive); anything else falls back
// to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = LevelDebug
	case "INFO":
		logLevel = LevelInfo
	case "WARN":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL":
		logLevel = LevelFatal
	default:
		log.Printf("[WARN] Unknown log level '%s' specified. Defaulting to INFO.", level)
		logLevel = LevelInfo
	}
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf logs a FATAL message and terminates the process via os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
