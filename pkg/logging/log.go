package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger   = newDiscardLogger()
	logFile  *os.File
	logMutex sync.Mutex
)

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init points the package logger at path. Until Init is called everything is discarded.
func Init(path string, level string) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	logger.SetOutput(f)
	logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects logging to w, mainly for tests and CLI debugging.
func SetOutput(w io.Writer, level logrus.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logger.SetOutput(w)
	logger.SetLevel(level)
}

// Close flushes and closes the log file, if any.
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
	logger.SetOutput(io.Discard)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func LogDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func LogInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func LogWarn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func LogError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}
