package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEpisodeID identifies the episode being processed.
	FieldEpisodeID = "episode_id"
	// FieldRunID identifies an alignment run.
	FieldRunID = "run_id"
	// FieldLang is a subtitle language code.
	FieldLang = "lang"
	// FieldStrategy is the cue-to-cue strategy chosen for a language pair.
	FieldStrategy = "strategy"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	episodeKey contextKey = iota
	runKey
)

// WithEpisode records the episode id on ctx.
func WithEpisode(ctx context.Context, episodeID string) context.Context {
	if strings.TrimSpace(episodeID) == "" {
		return ctx
	}
	return context.WithValue(ctx, episodeKey, episodeID)
}

// WithRun records the alignment run id on ctx.
func WithRun(ctx context.Context, runID string) context.Context {
	if strings.TrimSpace(runID) == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(episodeKey).(string); ok {
		fields = append(fields, slog.String(FieldEpisodeID, id))
	}
	if id, ok := ctx.Value(runKey).(string); ok {
		fields = append(fields, slog.String(FieldRunID, id))
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
