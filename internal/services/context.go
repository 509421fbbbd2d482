package services

import "context"

type contextKey int

const (
	phaseContextKey contextKey = iota
	episodeContextKey
)

// WithPhase stores the active phase name on the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseContextKey, phase)
}

// PhaseFromContext returns the active phase name, if any.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	phase, ok := ctx.Value(phaseContextKey).(string)
	return phase, ok && phase != ""
}

// WithEpisode stores the episode identifier on the context.
func WithEpisode(ctx context.Context, episode string) context.Context {
	if episode == "" {
		return ctx
	}
	return context.WithValue(ctx, episodeContextKey, episode)
}

// EpisodeFromContext returns the episode identifier, if any.
func EpisodeFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	episode, ok := ctx.Value(episodeContextKey).(string)
	return episode, ok && episode != ""
}
