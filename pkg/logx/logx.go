// Package logx is the project-wide structured logging facade, backed by
// logrus. Application code imports logx only; the backing logger is
// configured once at startup.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is structured logging context.
type Fields = logrus.Fields

// Entry is a log entry carrying accumulated fields.
type Entry = logrus.Entry

// Level represents logging level
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var defaultLogger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_FORMAT") == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// SetDefaultLogger swaps the backing logger (tests).
func SetDefaultLogger(l *logrus.Logger) {
	defaultLogger = l
}

// GetDefaultLogger returns the backing logger.
func GetDefaultLogger() *logrus.Logger {
	return defaultLogger
}

// SetLevel sets the log level for the default logger
func SetLevel(level Level) {
	defaultLogger.SetLevel(toLogrus(level))
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case LevelTrace:
		return logrus.TraceLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps a level name ("debug", "info", ...) to a Level,
// defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// ============================================================================
// Simple Logging Functions
// ============================================================================

func Trace(msg string) { defaultLogger.Trace(msg) }
func Debug(msg string) { defaultLogger.Debug(msg) }
func Info(msg string)  { defaultLogger.Info(msg) }
func Warn(msg string)  { defaultLogger.Warn(msg) }
func Error(msg string) { defaultLogger.Error(msg) }

// Fatal logs a fatal message and exits.
func Fatal(msg string) { defaultLogger.Fatal(msg) }

// ============================================================================
// Formatted Logging Functions
// ============================================================================

func Tracef(format string, args ...interface{}) { defaultLogger.Tracef(format, args...) }
func Debugf(format string, args ...interface{}) { defaultLogger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { defaultLogger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { defaultLogger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { defaultLogger.Errorf(format, args...) }

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...interface{}) { defaultLogger.Fatalf(format, args...) }

// ============================================================================
// Structured Logging
// ============================================================================

// WithFields starts an entry with structured fields.
func WithFields(fields Fields) *Entry {
	return defaultLogger.WithFields(fields)
}

// WithField starts an entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return defaultLogger.WithField(key, value)
}

// WithError starts an entry carrying an error.
func WithError(err error) *Entry {
	return defaultLogger.WithError(err)
}
