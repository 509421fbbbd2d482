package logging

import (
	"context"
	"log/slog"

	"dubbin/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPhase is the standardized structured logging key for pipeline phase names.
	FieldPhase = "phase"
	// FieldEpisode is the standardized structured logging key for episode identifiers.
	FieldEpisode = "episode"
	// FieldArtifact is the standardized structured logging key for artifact keys.
	FieldArtifact = "artifact"
	// FieldEventType marks lifecycle events (phase_start, phase_complete, phase_failure).
	FieldEventType = "event_type"
	// FieldUtterance is the standardized structured logging key for utterance identifiers.
	FieldUtterance = "utt_id"
)

// WithPhase stores the phase name on the context for downstream loggers.
func WithPhase(ctx context.Context, phase string) context.Context {
	return services.WithPhase(ctx, phase)
}

// WithEpisode stores the episode identifier on the context for downstream
// loggers.
func WithEpisode(ctx context.Context, episode string) context.Context {
	return services.WithEpisode(ctx, episode)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if episode, ok := services.EpisodeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEpisode, episode))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
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
