// Package logger is the process-wide levelled logger.
//
// Call sites use printf-style helpers and tag the message with the
// component in brackets, e.g. logger.Warn("[Store] skipping %s: %v", id, err).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Level is a logging threshold.
type Level = log.Level

const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
)

var (
	mu      sync.Mutex
	std     = newLogger(os.Stderr)
	logFile *os.File
)

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.InfoLevel,
	})
}

// ParseLevel maps a level name to a Level. "trace" is accepted as debug and
// "panic" as fatal so existing flag values keep working.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return InfoLevel, nil
	case "trace":
		return DebugLevel, nil
	case "panic":
		return FatalLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	std.SetLevel(l)
}

// GetLevel returns the current threshold.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return std.GetLevel()
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// SetFile appends log output to path. An empty path restores stderr.
func SetFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		std.SetOutput(os.Stderr)
		return closeFileLocked()
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	if err := closeFileLocked(); err != nil {
		f.Close()
		return err
	}
	logFile = f
	std.SetOutput(f)
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(os.Stderr)
	return closeFileLocked()
}

func closeFileLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func Debug(format string, args ...any) { std.Debugf(format, args...) }
func Info(format string, args ...any)  { std.Infof(format, args...) }
func Warn(format string, args ...any)  { std.Warnf(format, args...) }
func Error(format string, args ...any) { std.Errorf(format, args...) }
