// internal/applog/applog.go

package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the available logging levels
type LogLevel int

const (
	TRACE LogLevel = 10
	DEBUG LogLevel = 20
	INFO  LogLevel = 30
	WARN  LogLevel = 40
	ERROR LogLevel = 50
	FATAL LogLevel = 60
)

var logLevelNames = map[LogLevel]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogLevelNameToLevel maps string level names to level values
var LogLevelNameToLevel = map[string]LogLevel{
	"TRACE": TRACE,
	"DEBUG": DEBUG,
	"INFO":  INFO,
	"WARN":  WARN,
	"ERROR": ERROR,
	"FATAL": FATAL,
}

// Logger is the collector's own operational logger. It writes plain
// timestamped lines to stdout and is unrelated to the record pipeline.
type Logger struct {
	mu         sync.Mutex
	writer     io.Writer
	level      LogLevel
	showHealth bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Get returns the singleton instance of the application logger
func Get() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{
			writer:     os.Stdout,
			level:      WARN,
			showHealth: false,
		}
	})
	return defaultLogger
}

// SetLogLevel sets the minimum log level
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetLogLevelFromString sets the log level from a string name
func (l *Logger) SetLogLevelFromString(levelName string) error {
	levelName = strings.ToUpper(levelName)
	level, ok := LogLevelNameToLevel[levelName]
	if !ok {
		return fmt.Errorf("invalid log level: %s", levelName)
	}
	l.SetLogLevel(level)
	return nil
}

// SetShowHealth configures whether health check logs should be shown
func (l *Logger) SetShowHealth(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showHealth = show
}

// logf formats and logs a message if the level is sufficient.
// The lock is only held during checks and write, not during formatting.
func (l *Logger) logf(level LogLevel, isHealth bool, format string, args ...interface{}) {
	l.mu.Lock()
	shouldSkipHealth := isHealth && !l.showHealth
	shouldSkipLevel := level < l.level
	l.mu.Unlock()

	if shouldSkipHealth || shouldSkipLevel {
		return
	}

	now := time.Now().Format("2006-01-02T15:04:05Z07:00")
	levelName := logLevelNames[level]
	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("[%s] %s: %s\n", now, levelName, message)

	l.mu.Lock()
	_, _ = fmt.Fprint(l.writer, logLine)
	l.mu.Unlock()

	if level == FATAL {
		os.Exit(1)
	}
}

// Trace logs a message at TRACE level
func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(TRACE, false, format, args...)
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DEBUG, false, format, args...)
}

// Info logs a message at INFO level
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(INFO, false, format, args...)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WARN, false, format, args...)
}

// Error logs a message at ERROR level
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ERROR, false, format, args...)
}

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.logf(FATAL, false, format, args...)
}

// Health logs a health check message (only shown if showHealth is true)
func (l *Logger) Health(format string, args ...interface{}) {
	l.logf(INFO, true, format, args...)
}
