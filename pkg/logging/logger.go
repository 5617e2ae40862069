// Package logging provides structured JSON logging for the tank server.
// It wraps log/slog with context-first methods, per-session correlation IDs
// and redaction of sensitive attributes such as player secrets.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LevelEnvVar selects the minimum log level.
const LevelEnvVar = "TANKS_LOG_LEVEL"

// Logger wraps slog.Logger with correlation ID support.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger on stdout with the level taken from
// TANKS_LOG_LEVEL (DEBUG, INFO, WARN, ERROR; default INFO).
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout, ParseLevel(os.Getenv(LevelEnvVar)))
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: sanitizeAttributes,
	})
	return &Logger{slog.New(handler)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard, slog.LevelError+1)
}

// With returns a logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// LogWithContext logs msg, adding the correlation ID carried by ctx if any.
func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		args = append(args, "correlation_id", correlationID)
	}
	l.Log(ctx, level, msg, args...)
}

// Info logs an informational message.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error message; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation ID to ctx, generating one if empty.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// GetCorrelationID returns the correlation ID in ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID returns a new random UUID string.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// ParseLevel maps a level name to a slog level. Unknown names give INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var sensitiveKeys = []string{
	"password", "passwd",
	"token", "auth",
	"secret", "key", "private",
	"session",
}

// sanitizeAttributes masks attributes whose key looks sensitive.
func sanitizeAttributes(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

// WrapError wraps err with a formatted context message. A nil err stays nil.
func WrapError(err error, context string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		context = fmt.Sprintf(context, args...)
	}
	return fmt.Errorf("%s: %w", context, err)
}
