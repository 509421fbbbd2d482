package phases

import (
	"context"
	"os"

	"dubbin/internal/asr"
	"dubbin/internal/fileutil"
	"dubbin/internal/logging"
	"dubbin/internal/media"
	"dubbin/internal/services"
	"dubbin/internal/subtitle"
	"dubbin/internal/voice"
	"dubbin/internal/workspace"
)

// subtitlePhase normalizes the raw recognition response into the subtitle
// model and renders the source-language subtitles. As a side effect it
// registers every speaker seen in this episode in the show-level
// speaker_to_role registry.
type subtitlePhase struct {
	env *Env
}

func (p *subtitlePhase) Name() string { return NameSubtitle }
func (p *subtitlePhase) Version() int { return 1 }

func (p *subtitlePhase) Requires() []string {
	return []string{workspace.KeyRecognitionRaw, workspace.KeyAudioSource}
}

func (p *subtitlePhase) Provides() []string {
	return []string{workspace.KeySubtitleModel, workspace.KeyRenderZhSRT}
}

func (p *subtitlePhase) Settings() map[string]any {
	cfg := p.env.Config.Normalize
	return map[string]any{
		"silence_gap_ms":          cfg.SilenceGapMS,
		"min_utterance_ms":        cfg.MinUtteranceMS,
		"max_utterance_ms":        cfg.MaxUtteranceMS,
		"max_merge_gap_ms":        cfg.MaxMergeGapMS,
		"trailing_silence_cap_ms": cfg.TrailingSilence,
		"source_lang":             cfg.SourceLang,
	}
}

func (p *subtitlePhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	rawPath, err := ws.ArtifactPath(workspace.KeyRecognitionRaw)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSubtitle, "read recognition response", workspace.KeyRecognitionRaw, err)
	}
	transcript, err := asr.Parse(raw)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSubtitle, "parse recognition response", workspace.KeyRecognitionRaw, err)
	}

	durationMS := transcript.DurationMS
	if durationMS <= 0 {
		audioPath, err := ws.ArtifactPath(workspace.KeyAudioSource)
		if err != nil {
			return err
		}
		durationMS, err = media.DurationMS(ctx, p.env.FFprobeBin, audioPath)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, NameSubtitle, "probe audio duration", workspace.KeyAudioSource, err)
		}
	}

	cfg := p.env.Config.Normalize
	normalized := subtitle.Normalize(transcript, subtitle.NormalizeOptions{
		SilenceGapMS:   cfg.SilenceGapMS,
		MinUtteranceMS: cfg.MinUtteranceMS,
		MaxUtteranceMS: cfg.MaxUtteranceMS,
		MaxMergeGapMS:  cfg.MaxMergeGapMS,
		TrailingCapMS:  cfg.TrailingSilence,
	})
	if len(normalized) == 0 {
		return services.Wrap(services.ErrValidation, NameSubtitle, "normalize", "recognition response holds no words", nil)
	}
	model := subtitle.Build(normalized, cfg.SourceLang, durationMS)

	modelPath, err := ws.ArtifactPath(workspace.KeySubtitleModel)
	if err != nil {
		return err
	}
	if err := model.Save(modelPath); err != nil {
		return services.Wrap(services.ErrValidation, NameSubtitle, "write subtitle model", workspace.KeySubtitleModel, err)
	}

	srtPath, err := ws.ArtifactPath(workspace.KeyRenderZhSRT)
	if err != nil {
		return err
	}
	srt := subtitle.FormatSRT(model.SourceCues())
	if err := fileutil.WriteAtomic(srtPath, []byte(srt), 0o644); err != nil {
		return services.Wrap(services.ErrValidation, NameSubtitle, "write subtitles", workspace.KeyRenderZhSRT, err)
	}

	if err := p.registerSpeakers(ws, model); err != nil {
		return err
	}
	p.env.logger().Info("subtitle model built",
		logging.String(logging.FieldPhase, NameSubtitle),
		logging.Int("utterances", len(model.Utterances)),
		logging.Int("speakers", len(model.Speakers())))
	return nil
}

// registerSpeakers ensures the show registry has an entry (possibly empty)
// for every speaker in this episode. Read-modify-write under the workspace
// lock, which the runner holds for the whole run.
func (p *subtitlePhase) registerSpeakers(ws *workspace.Workspace, model *subtitle.Model) error {
	registry, err := voice.LoadSpeakerToRole(ws.SpeakerToRolePath())
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSubtitle, "load speaker registry", "show.speaker_to_role", err)
	}
	if registry.EnsureSpeakers(ws.Episode, model.Speakers()) {
		if err := registry.Save(ws.SpeakerToRolePath()); err != nil {
			return services.Wrap(services.ErrValidation, NameSubtitle, "update speaker registry", "show.speaker_to_role", err)
		}
	}
	return nil
}
