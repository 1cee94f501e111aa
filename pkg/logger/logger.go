package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"video-service/pkg/config"
)

// Logger wraps a logrus logger configured from the service log section.
type Logger struct {
	entry *logrus.Logger
}

// NewLogger builds a logger from configuration. A nil config yields an
// info-level text logger on stdout.
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level := logrus.InfoLevel
	format := "text"
	output := "stdout"
	filename := ""
	if cfg != nil {
		if parsed, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			level = parsed
		}
		if cfg.Log.Format != "" {
			format = cfg.Log.Format
		}
		if cfg.Log.Output != "" {
			output = cfg.Log.Output
		}
		filename = cfg.Log.Filename
	}
	l.SetLevel(level)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var w io.Writer = os.Stdout
	switch output {
	case "stderr":
		w = os.Stderr
	case "file":
		if filename != "" {
			if f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				w = f
			}
		}
	}
	l.SetOutput(w)

	return &Logger{entry: l}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// Debug logs a message with structured fields.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// Info logs a message with structured fields.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

// Warn logs a message with structured fields.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

// Error logs a message with structured fields.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}

// Fatal logs the message and exits.
func (l *Logger) Fatal(msg string) { l.entry.Fatal(msg) }

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// SetGlobalLogger installs the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func getGlobal() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l == nil {
		globalMu.Lock()
		if globalLogger == nil {
			globalLogger = NewLogger(nil)
		}
		l = globalLogger
		globalMu.Unlock()
	}
	return l
}

// Package-level helpers mirror the Logger methods on the global instance.

func Debugf(format string, args ...interface{}) { getGlobal().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { getGlobal().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { getGlobal().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { getGlobal().Errorf(format, args...) }

func Debug(msg string, fields map[string]interface{}) { getGlobal().Debug(msg, fields) }
func Info(msg string, fields map[string]interface{})  { getGlobal().Info(msg, fields) }
func Warn(msg string, fields map[string]interface{})  { getGlobal().Warn(msg, fields) }
func Error(msg string, fields map[string]interface{}) { getGlobal().Error(msg, fields) }

func Fatal(msg string) { getGlobal().Fatal(msg) }

// Fatalf formats and logs the message, then exits.
func Fatalf(format string, args ...interface{}) { getGlobal().Fatal(fmt.Sprintf(format, args...)) }
