package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the package logger.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
	File   string // optional rotated log file, in addition to stderr
	// MaxSizeMB is the rotation threshold for File.
	MaxSizeMB  int
	MaxBackups int
}

var (
	mu       sync.RWMutex
	disabled = false
	logger   = newLogger()
	rotator  *lumberjack.Logger
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	level := logrus.InfoLevel
	if lvl, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil {
		level = lvl
	}
	l.SetLevel(level)
	return l
}

// Configure applies opts to the package logger. Empty fields keep their
// current values.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return err
		}
		logger.SetLevel(lvl)
	}

	switch opts.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case "text", "":
	}

	if opts.File != "" {
		if rotator != nil {
			_ = rotator.Close()
		}
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = 20
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Disable turns off all logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	disabled = true
	logger.SetOutput(io.Discard)
}

// Enable turns logging back on
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	disabled = false
	if rotator != nil {
		logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	} else {
		logger.SetOutput(os.Stderr)
	}
}

// Close flushes and closes the rotated log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	logger.SetOutput(os.Stderr)
	return err
}

func enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return !disabled
}

// Info logs an info message
func Info(v ...any) {
	if enabled() {
		logger.Info(v...)
	}
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	if enabled() {
		logger.Infof(format, v...)
	}
}

// Error logs an error message
func Error(v ...any) {
	if enabled() {
		logger.Error(v...)
	}
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	if enabled() {
		logger.Errorf(format, v...)
	}
}

// Warn logs a warning message
func Warn(v ...any) {
	if enabled() {
		logger.Warn(v...)
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	if enabled() {
		logger.Warnf(format, v...)
	}
}

// Debug logs a debug message
func Debug(v ...any) {
	if enabled() {
		logger.Debug(v...)
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	if enabled() {
		logger.Debugf(format, v...)
	}
}

// Entry is a component-scoped logger that can be embedded in structs.
type Entry struct {
	*logrus.Entry
}

// WithComponent returns an entry tagged with the given component name.
func WithComponent(component string) *Entry {
	return &Entry{Entry: logger.WithField("component", component)}
}

// WithField returns a copy of e carrying an extra field.
func (e *Entry) WithField(key string, value any) *Entry {
	return &Entry{Entry: e.Entry.WithField(key, value)}
}

// WithError returns a copy of e carrying err.
func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}
