package logging

import (
	"context"
	"log/slog"
)

// Attr mirrors slog.Attr helpers so call sites read naturally.
type Attr = slog.Attr

// String constructs a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Int constructs an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 constructs an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Float64 constructs a float64 attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Bool constructs a bool attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration constructs a duration attribute.
func Duration(key string, value interface{ String() string }) Attr {
	return slog.String(key, value.String())
}

// Any constructs an attribute from an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Group constructs a grouped attribute.
func Group(key string, args ...any) Attr { return slog.Group(key, args...) }

// Error returns a standardized attribute for error values.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards all records.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler implements slog.Handler and drops everything.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// NewComponentLogger tags a logger with the owning component name.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext emits a warning enriched with context correlation fields.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	combined := append(ContextFields(ctx), attrs...)
	logger.LogAttrs(ctx, slog.LevelWarn, msg, combined...)
}

// ErrorWithContext emits an error enriched with context correlation fields.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	combined := append(ContextFields(ctx), attrs...)
	logger.LogAttrs(ctx, slog.LevelError, msg, combined...)
}
