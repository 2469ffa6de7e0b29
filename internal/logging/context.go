package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator-facing remediation hints.
	FieldErrorHint = "error_hint"
	// FieldRecording is the standardized structured logging key for a recording's base name.
	FieldRecording = "recording"
	// FieldCycleID is the standardized structured logging key for lifecycle correlation identifiers.
	FieldCycleID = "cycle_id"
	// FieldSource is the standardized structured logging key for capture source kinds.
	FieldSource = "source"
	// FieldPhase is the standardized structured logging key for watcher phases.
	FieldPhase = "phase"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey string

const (
	recordingKey contextKey = "recording"
	cycleIDKey   contextKey = "cycle_id"
)

// WithRecording annotates context with a recording base name.
func WithRecording(ctx context.Context, baseName string) context.Context {
	if baseName == "" {
		return ctx
	}
	return context.WithValue(ctx, recordingKey, baseName)
}

// RecordingFromContext extracts the recording base name if present.
func RecordingFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordingKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCycleID annotates context with a lifecycle correlation identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the lifecycle correlation identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cycleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if base, ok := RecordingFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRecording, base))
	}
	if id, ok := CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
