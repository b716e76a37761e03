// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Records are written through log/slog, as
// text or JSON. The logger is safe for concurrent use.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// String returns the level name used in config files.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelVerbose:
		return "verbose"
	default:
		return "normal"
	}
}

// ParseLevel maps a config value to a Level. Unknown values mean normal.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "quiet", "none":
		return LevelOff
	case "verbose", "debug":
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// slogOff sits above every level slog emits.
const slogOff = slog.LevelError + 4

func (l Level) slog() slog.Level {
	switch l {
	case LevelOff:
		return slogOff
	case LevelVerbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	level  *slog.LevelVar
	handle *slog.Logger
}

// New creates a logger with the given level, writing text records to the
// given output. If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	return NewWithFormat(level, "text", out)
}

// NewWithFormat is New with an explicit record format, "text" or "json".
func NewWithFormat(level Level, format string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	lv := new(slog.LevelVar)
	lv.Set(level.slog())
	opts := &slog.HandlerOptions{Level: lv}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	return &Logger{level: lv, handle: slog.New(h)}
}

// With returns a logger that adds the given key/value pairs to every record.
// The returned logger shares its level with l.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{level: l.level, handle: l.handle.With(args...)}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slog())
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	switch lv := l.level.Level(); {
	case lv >= slogOff:
		return LevelOff
	case lv <= slog.LevelDebug:
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args)
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args)
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args)
}

func (l *Logger) log(level slog.Level, format string, args []any) {
	ctx := context.Background()
	if !l.handle.Enabled(ctx, level) {
		return
	}
	l.handle.Log(ctx, level, fmt.Sprintf(format, args...))
}
