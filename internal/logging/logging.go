package logging

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger. It writes to stderr so command
// output on stdout stays clean. Defaults to info until Init runs.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.RFC3339,
	Level:           log.InfoLevel,
})

// Init sets the log level by name (debug, info, warn, error). An unknown
// name keeps the current level.
func Init(level string) {
	if level == "" {
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		Logger.Warn("unknown log level", "level", level)
		return
	}
	Logger.SetLevel(lvl)
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// WithPrefix returns a logger tagged with a component prefix.
func WithPrefix(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}
