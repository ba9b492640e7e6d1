package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	directoryKey contextKey = "directory"
	triggerKey   contextKey = "trigger"
)

// Trigger names the origin of a directory pass.
const (
	TriggerBatch  = "batch"
	TriggerLive   = "live"
	TriggerSingle = "single"
)

// WithRunID annotates context with the identifier of a batch run or live event.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDirectory annotates context with the directory being processed.
func WithDirectory(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, directoryKey, dir)
}

// DirectoryFromContext returns the directory if present.
func DirectoryFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(directoryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTrigger annotates context with what started the pass (batch, live, single).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	if trigger == "" {
		return ctx
	}
	return context.WithValue(ctx, triggerKey, trigger)
}

// TriggerFromContext returns the trigger if present.
func TriggerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(triggerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
