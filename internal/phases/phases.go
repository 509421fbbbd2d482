package phases

import (
	"context"
	"log/slog"

	"dubbin/internal/config"
	"dubbin/internal/logging"
	"dubbin/internal/media"
	"dubbin/internal/pipeline"
	"dubbin/internal/tts"
	"dubbin/internal/services/volcasr"
)

// Phase names, in execution order.
const (
	NameDemux      = "demux"
	NameSeparate   = "separate"
	NameRecognize  = "recognize"
	NameSubtitle   = "subtitle"
	NameTranslate  = "translate"
	NameAlign      = "align"
	NameSynthesize = "synthesize"
	NameMix        = "mix"
	NameBurn       = "burn"
)

// Recognizer runs a submit/poll recognition job against staged audio.
type Recognizer interface {
	Recognize(ctx context.Context, req volcasr.Request) ([]byte, error)
}

// AudioStager uploads a local file and returns a URL the recognition
// service can fetch.
type AudioStager interface {
	Stage(ctx context.Context, localPath, name string) (string, error)
}

// Translator turns one prompt pair into a target-language string.
type Translator interface {
	Translate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Env bundles everything the concrete phases need. Service fields may stay
// nil for planning and bless, which never call Run.
type Env struct {
	Config     config.Config
	Logger     *slog.Logger
	FFmpeg     *media.FFmpeg
	FFprobeBin string

	Recognizer Recognizer
	Stager     AudioStager
	Translator Translator
	Speech     tts.SpeechClient
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

// All returns the nine phases in dependency order.
func All(env *Env) []pipeline.Phase {
	return []pipeline.Phase{
		&demuxPhase{env: env},
		&separatePhase{env: env},
		&recognizePhase{env: env},
		&subtitlePhase{env: env},
		&translatePhase{env: env},
		&alignPhase{env: env},
		&synthesizePhase{env: env},
		&mixPhase{env: env},
		&burnPhase{env: env},
	}
}

// Names lists the phase names in execution order.
func Names() []string {
	return []string{
		NameDemux, NameSeparate, NameRecognize, NameSubtitle, NameTranslate,
		NameAlign, NameSynthesize, NameMix, NameBurn,
	}
}
