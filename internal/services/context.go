package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
	targetKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID tags ctx with the ledger run id.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

// RunIDFromContext returns the run id set by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, runIDKey) }

// WithStage tags ctx with the pipeline step being executed.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the step set by WithStage.
func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithTarget tags ctx with the library path being processed.
func WithTarget(ctx context.Context, path string) context.Context {
	return withValue(ctx, targetKey, path)
}

// TargetFromContext returns the library path set by WithTarget.
func TargetFromContext(ctx context.Context) (string, bool) { return lookup(ctx, targetKey) }
