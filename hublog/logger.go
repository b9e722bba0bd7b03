package hublog

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a minimum logging threshold.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config configures a new *logrus.Logger via New.
type Config struct {
	Level     Level
	Format    string // "json" or "text"; default "text"
	AddCaller bool
}

// DefaultConfig returns sensible defaults for embedding into an application.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: "text"}
}

// New builds a *logrus.Logger routed through the stdout/stderr splitter.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)
	logger.SetOutput(streamSplitter{})
	return logger
}

// Fields is a typed alias kept at the package boundary so callers don't need
// to import logrus directly.
type Fields = logrus.Fields

// Logger is a small structured-logging facade around *logrus.Logger that
// accumulates fields through chained With* calls. Every package in this
// module that accepts a *Logger treats nil as "logging disabled".
type Logger struct {
	base   *logrus.Logger
	fields Fields
}

// NewLogger wraps base (or the package default, if base is nil) with an
// empty field set.
func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = defaultLogrus
	}
	return &Logger{base: base, fields: make(Fields)}
}

func (l *Logger) clone() *Logger {
	if l == nil {
		return nil
	}
	next := make(Fields, len(l.fields))
	for k, v := range l.fields {
		next[k] = v
	}
	return &Logger{base: l.base, fields: next}
}

// WithField returns a derived Logger carrying an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	if l == nil {
		return nil
	}
	next := l.clone()
	next.fields[key] = value
	return next
}

// WithFields returns a derived Logger carrying additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	if l == nil {
		return nil
	}
	next := l.clone()
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

// WithError returns a derived Logger carrying the error's message.
func (l *Logger) WithError(err error) *Logger {
	if l == nil || err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) entry() *logrus.Entry {
	return l.base.WithFields(l.fields)
}

func (l *Logger) Debug(msg string) {
	if l != nil {
		l.entry().Debug(msg)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l != nil {
		l.entry().Debugf(format, args...)
	}
}

func (l *Logger) Info(msg string) {
	if l != nil {
		l.entry().Info(msg)
	}
}

func (l *Logger) Warn(msg string) {
	if l != nil {
		l.entry().Warn(msg)
	}
}

func (l *Logger) Error(msg string) {
	if l != nil {
		l.entry().Error(msg)
	}
}

// WithDuration logs a completed operation with its elapsed time.
func (l *Logger) WithDuration(operation string, start time.Time) {
	if l == nil {
		return
	}
	l.WithFields(Fields{
		"operation":   operation,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("operation completed")
}

// RecoverAndLog recovers a panic, if any, and logs it at error level with a
// stack trace. Intended for deferred use at the boundary between this
// library and caller-supplied code (DataSource implementations, observer
// callbacks), where a panic must still propagate to the caller rather than
// being swallowed — so this never suppresses the panic, it only annotates
// it before re-panicking.
func (l *Logger) RecoverAndLog() {
	if r := recover(); r != nil {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		if l != nil {
			l.WithFields(Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(buf[:n]),
			}).Error("panic recovered for logging, re-panicking")
		}
		panic(r)
	}
}
