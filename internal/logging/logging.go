// Package logging provides structured logging built on zap.
//
// A process-wide logger is configured once with InitLogger and used by the
// command line front end. Library packages take a *zap.Logger in their
// constructors instead of reaching for the global.
package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// SessionIDKey is the context key for import session ids.
	SessionIDKey ContextKey = "session_id"
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error").
// Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable console format.
	FormatText
)

// NewLogger builds a logger writing to ws at the given level and format.
func NewLogger(level Level, format Format, ws zapcore.WriteSyncer) *zap.Logger {
	var enc zapcore.Encoder
	if format == FormatJSON {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(ws), zap.NewAtomicLevelAt(level.zapLevel())))
}

// InitLogger initializes the global logger with the specified level and
// format. Output goes to stderr so stdout stays free for command output.
func InitLogger(level Level, format Format) {
	SetLogger(NewLogger(level, format, os.Stderr))
}

// SetLogger replaces the global logger. A nil logger installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// GetLogger returns the global logger instance.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// WithSessionID adds an import session id to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// GetSessionID retrieves the import session id from the context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns l with context values attached.
func FromContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	l = OrNop(l)
	if id := GetSessionID(ctx); id != "" {
		l = l.With(zap.String("session_id", id))
	}
	return l
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, keysAndValues ...any) {
	GetLogger().Sugar().Debugw(msg, keysAndValues...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, keysAndValues ...any) {
	GetLogger().Sugar().Infow(msg, keysAndValues...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, keysAndValues ...any) {
	GetLogger().Sugar().Warnw(msg, keysAndValues...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, keysAndValues ...any) {
	GetLogger().Sugar().Errorw(msg, keysAndValues...)
}

// BookStarted logs the start of a book import.
func BookStarted(l *zap.Logger, canonical int, code string, existed bool) {
	OrNop(l).Info("book_started",
		zap.Int("book", canonical),
		zap.String("code", code),
		zap.Bool("replaces_existing", existed),
	)
}

// SegmentSkipped logs a segment that was ignored.
func SegmentSkipped(l *zap.Logger, marker, reason string, fields ...zap.Field) {
	all := append([]zap.Field{zap.String("marker", marker), zap.String("reason", reason)}, fields...)
	OrNop(l).Warn("segment_skipped", all...)
}

// ImportFailed logs an aborted import.
func ImportFailed(l *zap.Logger, err error, fields ...zap.Field) {
	all := append([]zap.Field{zap.Error(err)}, fields...)
	OrNop(l).Error("import_failed", all...)
}
