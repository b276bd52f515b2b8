package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelPrefixes = map[Level]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO]  ",
	WARN:  "[WARN]  ",
	ERROR: "[ERROR] ",
}

// Logger writes leveled messages through the standard log package.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
}

var (
	std  = New(INFO, os.Stderr)
	once sync.Once
)

// New creates a Logger writing to w at the given minimum level.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		level: level,
		out:   log.New(w, "", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Init configures the package-level logger. Only the first call has effect.
func Init(debug bool) {
	once.Do(func() {
		if debug {
			std.SetLevel(DEBUG)
		}
	})
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	// skip logf and the exported wrapper so Lshortfile points at the caller
	l.out.Output(3, levelPrefixes[level]+fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) { l.logf(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{}) { l.logf(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{}) { l.logf(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(ERROR, format, args...) }

func Debug(format string, args ...interface{}) { std.logf(DEBUG, format, args...) }
func Info(format string, args ...interface{}) { std.logf(INFO, format, args...) }
func Warn(format string, args ...interface{}) { std.logf(WARN, format, args...) }
func Error(format string, args ...interface{}) { std.logf(ERROR, format, args...) }

// DebugEnabled reports whether debug output is on for the package-level logger.
func DebugEnabled() bool { return std.Enabled(DEBUG) }

// Fatal logs at ERROR and exits.
func Fatal(format string, args ...interface{}) {
	std.logf(ERROR, format, args...)
	os.Exit(1)
}
