package logging

import (
	"context"
	"log/slog"

	"motionmux/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "pair_transformed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldRunID is the standardized structured logging key for batch or event run identifiers.
	FieldRunID = "run_id"
	// FieldDirectory is the standardized structured logging key for the directory being processed.
	FieldDirectory = "dir"
	// FieldTrigger records whether a pass came from a batch scan, a live event, or single-pair mode.
	FieldTrigger = "trigger"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if dir, ok := services.DirectoryFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDirectory, dir))
	}
	if trigger, ok := services.TriggerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTrigger, trigger))
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
	return logger.With(Args(fields...)...)
}
