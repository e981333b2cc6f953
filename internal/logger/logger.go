package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	constants "nselfadmin/config"
)

// Level represents log level
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
	LevelDebug   Level = "DEBUG"
)

// Logger writes timestamped lines to a log file, or to stderr when no file
// could be opened.
type Logger struct {
	filePath string
	out      io.Writer
	closer   io.Closer
	debug    bool
	mu       sync.Mutex
}

// New creates a new logger instance
func New(filePath string) *Logger {
	logger := &Logger{filePath: filePath, out: os.Stderr}

	if filePath != "" {
		logFile, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			logger.out = logFile
			logger.closer = logFile
		}
	}

	return logger
}

// NewWithWriter creates a logger writing to w. Used by tests and the
// foreground daemon.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{out: w, debug: debug}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New(constants.LOG_FILE)
}

// SetDebug toggles DEBUG lines.
func (l *Logger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *Logger) write(level Level, message string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level == LevelDebug && !l.debug {
		return
	}
	if l.out == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(l.out, "[%s] %s: %s\n", timestamp, level, formattedMsg)
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		l.closer.Close()
		l.closer = nil
		l.out = nil
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, args ...interface{}) {
	l.write(LevelInfo, message, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(message string, args ...interface{}) {
	l.write(LevelWarning, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.write(LevelError, message, args...)
}

// Success logs a success message
func (l *Logger) Success(message string, args ...interface{}) {
	l.write(LevelSuccess, message, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.write(LevelDebug, message, args...)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = Default()
)

// Configure replaces the package logger and closes the previous one.
// An empty file logs to stderr.
func Configure(filePath string, debug bool) {
	l := New(filePath)
	l.SetDebug(debug)
	if prev := SetDefault(l); prev != nil {
		prev.Close()
	}
}

// SetDefault swaps the package logger and returns the previous one.
func SetDefault(l *Logger) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultLogger
	defaultLogger = l
	return prev
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Info logs an informational message using the default logger
func Info(message string, args ...interface{}) {
	current().Info(message, args...)
}

// Warning logs a warning message using the default logger
func Warning(message string, args ...interface{}) {
	current().Warning(message, args...)
}

// Error logs an error message using the default logger
func Error(message string, args ...interface{}) {
	current().Error(message, args...)
}

// Success logs a success message using the default logger
func Success(message string, args ...interface{}) {
	current().Success(message, args...)
}

// Debug logs a debug message using the default logger
func Debug(message string, args ...interface{}) {
	current().Debug(message, args...)
}
