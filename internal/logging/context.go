package logging

import (
	"context"
	"log/slog"
)

// Shared structured logging field names. Keeping them here prevents drift
// between components that log the same identifiers.
const (
	FieldComponent     = "component"
	FieldTrackKey      = "track_key"
	FieldSourcePath    = "source_path"
	FieldPhase         = "phase"
	FieldEvent         = "event_type"
	FieldErrorHint     = "error_hint"
	FieldCorrelationID = "correlation_id"
	FieldDuration      = "duration"
	FieldWorker        = "worker"
)

type contextKey string

const (
	ctxTrackKey      contextKey = "track_key"
	ctxPhase         contextKey = "phase"
	ctxCorrelationID contextKey = "correlation_id"
)

// WithTrackKey stores the normalized track key on the context.
func WithTrackKey(ctx context.Context, trackKey string) context.Context {
	if trackKey == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxTrackKey, trackKey)
}

// WithPhase stores the active analysis phase on the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxPhase, phase)
}

// WithCorrelationID stores a correlation identifier on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxCorrelationID, id)
}

// TrackKeyFromContext returns the track key stored on the context, if any.
func TrackKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTrackKey).(string); ok {
		return v
	}
	return ""
}

// PhaseFromContext returns the phase stored on the context, if any.
func PhaseFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPhase).(string); ok {
		return v
	}
	return ""
}

// CorrelationIDFromContext returns the correlation id stored on the context.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCorrelationID).(string); ok {
		return v
	}
	return ""
}

// ContextFields extracts correlation attributes from the context.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if v := TrackKeyFromContext(ctx); v != "" {
		attrs = append(attrs, String(FieldTrackKey, v))
	}
	if v := PhaseFromContext(ctx); v != "" {
		attrs = append(attrs, String(FieldPhase, v))
	}
	if v := CorrelationIDFromContext(ctx); v != "" {
		attrs = append(attrs, String(FieldCorrelationID, v))
	}
	return attrs
}

// WithContext binds context correlation fields onto a logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
