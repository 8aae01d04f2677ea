package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogLevel represents the available log levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog with component/event helpers and intention tagging
type Logger struct {
	*slog.Logger
}

// Level maps a LogLevel to its slog level, defaulting to info.
func (l LogLevel) Level() slog.Level {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLoggerWithConsoleWriter builds a logger that writes console output to the given writer
// and structured output to ~/.polyglot/logs/polyglot.log
func NewLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) *Logger {
	if consoleWriter == nil {
		consoleWriter = os.Stderr
	}
	slogLevel := level.Level()
	handler := newMultiHandler(
		newPlainHandler(consoleWriter, slogLevel),
		newFileTextHandler(slogLevel),
	)
	return &Logger{Logger: slog.New(handler)}
}

// NewWriterLogger logs plain console lines to w only. Used by tests and one-shot commands.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{Logger: slog.New(newPlainHandler(w, level.Level()))}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWriterLogger(LogLevelError, io.Discard)
}

// WithComponent creates a logger with a component context for better tracing
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With("component", component)}
}

// WithEvent scopes a logger to one inbound event
func (l *Logger) WithEvent(messageID, traceID string) *Logger {
	return &Logger{Logger: l.With("event", messageID, "trace", traceID)}
}

// LogWithIntention logs a message at the provided level with an intention tag.
// The console handler renders the intention as an icon.
func (l *Logger) LogWithIntention(level slog.Level, intention Intention, msg string, args ...any) {
	kv := append([]any{"intention", string(intention)}, args...)
	l.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) InfoWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelInfo, intention, msg, args...)
}

func (l *Logger) DebugWithIntention(intention Intention, msg string, args ...any) {
	l.LogWithIntention(slog.LevelDebug, intention, msg, args...)
}

// Default logger instance - single instance for the entire application
var Default = NewWriterLogger(LogLevelInfo, os.Stderr)

// SetGlobalLoggerWithConsoleWriter replaces the global Default logger using the provided console writer
func SetGlobalLoggerWithConsoleWriter(level LogLevel, consoleWriter io.Writer) {
	Default = NewLoggerWithConsoleWriter(level, consoleWriter)
}

// LogFilePath returns where the structured log file lives
func LogFilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".polyglot", "logs", "polyglot.log")
}

// newFileTextHandler opens the log file for append and returns a slog text handler
func newFileTextHandler(level slog.Level) slog.Handler {
	path := LogFilePath()
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Fallback to stderr if file cannot be opened
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05.000"))}
			}
			return a
		},
	}
	return slog.NewTextHandler(f, opts)
}
