// Package logging implements the logDebug/logInfo/logWarn/logError/
// logSetLevel built-ins on top of github.com/sirupsen/logrus: timestamped,
// level-filtered writes to stderr.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level mirrors the 0..3 DEBUG..ERROR mapping.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	logger  = newLogger()
	minimum = LevelInfo // mutated only by SetLevel
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.DebugLevel) // this package's own `enabled` gate is authoritative
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		DisableColors:   true,
	})
	return l
}

// SetLevel sets the process-wide minimum log level.
func SetLevel(n int) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case n <= int(LevelDebug):
		minimum = LevelDebug
	case n == int(LevelInfo):
		minimum = LevelInfo
	case n == int(LevelWarn):
		minimum = LevelWarn
	default:
		minimum = LevelError
	}
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= minimum
}

// Debug writes a DEBUG line if the minimum level permits it.
func Debug(msg string) {
	if enabled(LevelDebug) {
		logger.Debug(msg)
	}
}

// Info writes an INFO line if the minimum level permits it.
func Info(msg string) {
	if enabled(LevelInfo) {
		logger.Info(msg)
	}
}

// Warn writes a WARN line if the minimum level permits it.
func Warn(msg string) {
	if enabled(LevelWarn) {
		logger.Warn(msg)
	}
}

// Error writes an ERROR line if the minimum level permits it.
func Error(msg string) {
	if enabled(LevelError) {
		logger.Error(msg)
	}
}
