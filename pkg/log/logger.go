// Package log provides a structured logging system for deque services.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name (debug|info|warn|error|fatal) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// Format selects the output encoding.
type Format string

const (
	// TextFormat renders human-friendly console lines.
	TextFormat Format = "text"
	// JSONFormat renders one JSON object per line.
	JSONFormat Format = "json"
)

// Logger defines the core logging interface for deque components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs at error severity and exits the process.
	Fatal(msg string, fields ...Field)

	// With returns a child logger carrying the given fields.
	With(fields ...Field) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)

	// GetLevel returns the current minimum log level
	GetLevel() Level
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface on top of slog.
type BaseLogger struct {
	level      *slog.LevelVar
	format     Format
	out        io.Writer
	slogLogger *slog.Logger
}

// NewLogger creates a new logger with the given options.
// Defaults: info level, text format, stdout.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{
		level:  &slog.LevelVar{},
		format: TextFormat,
		out:    os.Stdout,
	}
	logger.level.Set(toSlogLevel(InfoLevel))

	for _, option := range options {
		option(logger)
	}

	logger.slogLogger = slog.New(newHandler(logger.format, logger.out, logger.level))
	return logger
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return NewLogger(WithWriter(io.Discard), WithLevel(FatalLevel))
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level.Set(toSlogLevel(level))
	}
}

// WithFormat sets the output encoding.
func WithFormat(format Format) LoggerOption {
	return func(l *BaseLogger) {
		l.format = format
	}
}

// WithWriter sets the destination writer.
func WithWriter(w io.Writer) LoggerOption {
	return func(l *BaseLogger) {
		if w != nil {
			l.out = w
		}
	}
}

func (l *BaseLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.slogLogger.Enabled(ctx, level) {
		return
	}
	l.slogLogger.LogAttrs(ctx, level, msg, attrsFromFields(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields) }

func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.slogLogger.LogAttrs(context.Background(), slog.LevelError, msg, attrsFromFields(fields)...)
	os.Exit(1)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.slogLogger = l.slogLogger.With(attrsToAny(attrsFromFields(fields))...)
	return &child
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *BaseLogger) SetLevel(level Level) { l.level.Set(toSlogLevel(level)) }

func (l *BaseLogger) GetLevel() Level { return fromSlogLevel(l.level.Level()) }

// Slog exposes the underlying slog.Logger for libraries that accept one.
func (l *BaseLogger) Slog() *slog.Logger { return l.slogLogger }
