package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	constants "touchmon/config"
)

// Level orders messages by severity. SUCCESS sits with INFO.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelWarning
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelSuccess: "SUCCESS",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel accepts the level names case-insensitively ("warn" too)
func ParseLevel(s string) (Level, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARN" {
		return LevelWarning, true
	}
	for level, name := range levelNames {
		if name == s {
			return level, true
		}
	}
	return LevelInfo, false
}

// Logger appends "[time] LEVEL: message" lines to its output
type Logger struct {
	mu   sync.Mutex
	out  io.Writer
	file *os.File
	min  Level
}

// New logs to filePath, or to stderr when TOUCHMON_STDERR_LOG is set. A file
// that cannot be opened leaves the logger silent.
func New(filePath string) *Logger {
	l := &Logger{min: envLevel()}

	switch {
	case os.Getenv(constants.ENV_STDERR_LOG) != "":
		l.out = os.Stderr
	case filePath != "":
		if f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			l.file = f
			l.out = f
		}
	}
	return l
}

// NewWithWriter logs every level to w
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{out: w, min: LevelDebug}
}

func envLevel() Level {
	if level, ok := ParseLevel(os.Getenv(constants.ENV_LOG_LEVEL)); ok {
		return level
	}
	return LevelDebug
}

// SetLevel drops messages below min
func (l *Logger) SetLevel(min Level) {
	l.mu.Lock()
	l.min = min
	l.mu.Unlock()
}

// Logf writes one line at level
func (l *Logger) Logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil || level < l.min {
		return
	}
	fmt.Fprintf(l.out, "[%s] %s: %s\n", time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, args...))
}

// Close closes the log file; later messages are dropped
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.out = nil
	}
}

func (l *Logger) Info(format string, args ...interface{})    { l.Logf(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Logf(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Logf(LevelError, format, args...) }
func (l *Logger) Success(format string, args ...interface{}) { l.Logf(LevelSuccess, format, args...) }
func (l *Logger) Debug(format string, args ...interface{})   { l.Logf(LevelDebug, format, args...) }

var (
	stdMu sync.RWMutex
	std   = New(constants.LOG_FILE)
)

func current() *Logger {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// SetDefault swaps the package logger and returns the previous one
func SetDefault(l *Logger) *Logger {
	stdMu.Lock()
	defer stdMu.Unlock()
	prev := std
	std = l
	return prev
}

// SetOutputFile points the package logger at path. Empty keeps the current
// destination.
func SetOutputFile(path string) {
	if path == "" {
		return
	}
	if prev := SetDefault(New(path)); prev != nil {
		prev.Close()
	}
}

func Info(format string, args ...interface{})    { current().Info(format, args...) }
func Warning(format string, args ...interface{}) { current().Warning(format, args...) }
func Error(format string, args ...interface{})   { current().Error(format, args...) }
func Success(format string, args ...interface{}) { current().Success(format, args...) }
func Debug(format string, args ...interface{})   { current().Debug(format, args...) }
