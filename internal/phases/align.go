package phases

import (
	"context"

	"dubbin/internal/align"
	"dubbin/internal/fileutil"
	"dubbin/internal/mt"
	"dubbin/internal/services"
	"dubbin/internal/subtitle"
	"dubbin/internal/workspace"
)

// alignPhase builds the dub model from the subtitle model and translations,
// rebuilds display cues for the target language, and renders the English
// subtitles.
type alignPhase struct {
	env *Env
}

func (p *alignPhase) Name() string { return NameAlign }
func (p *alignPhase) Version() int { return 1 }

func (p *alignPhase) Requires() []string {
	return []string{workspace.KeySubtitleModel, workspace.KeyMTOutput}
}

func (p *alignPhase) Provides() []string {
	return []string{workspace.KeyDubModel, workspace.KeySubtitleAlign, workspace.KeyRenderEnSRT}
}

func (p *alignPhase) Settings() map[string]any {
	cfg := p.env.Config.Align
	return map[string]any{
		"max_extend_ms": cfg.MaxExtendMS,
		"safety_gap_ms": cfg.SafetyGapMS,
		"cue_chars":     cfg.CueChars,
		"max_rate":      cfg.MaxRate,
		"target_lang":   p.env.Config.Translation.TargetLang,
	}
}

func (p *alignPhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	modelPath, err := ws.ArtifactPath(workspace.KeySubtitleModel)
	if err != nil {
		return err
	}
	model, err := subtitle.Load(modelPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "load subtitle model", workspace.KeySubtitleModel, err)
	}
	outputPath, err := ws.ArtifactPath(workspace.KeyMTOutput)
	if err != nil {
		return err
	}
	translations, err := mt.ReadOutputs(outputPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "load translations", workspace.KeyMTOutput, err)
	}

	cfg := p.env.Config.Align
	dub, err := align.Build(model, translations, align.Options{
		MaxExtendMS: cfg.MaxExtendMS,
		SafetyGapMS: cfg.SafetyGapMS,
		CueChars:    cfg.CueChars,
		MaxRate:     cfg.MaxRate,
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "build dub model", workspace.KeyDubModel, err)
	}
	dubPath, err := ws.ArtifactPath(workspace.KeyDubModel)
	if err != nil {
		return err
	}
	if err := dub.Save(dubPath); err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "write dub model", workspace.KeyDubModel, err)
	}

	targetLang := p.env.Config.Translation.TargetLang
	cues := align.BuildCues(dub, targetLang, cfg.CueChars)
	cuesPath, err := ws.ArtifactPath(workspace.KeySubtitleAlign)
	if err != nil {
		return err
	}
	if err := cues.Save(cuesPath); err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "write cues", workspace.KeySubtitleAlign, err)
	}

	srtPath, err := ws.ArtifactPath(workspace.KeyRenderEnSRT)
	if err != nil {
		return err
	}
	srt := subtitle.FormatSRT(cues.SRTCues())
	if err := fileutil.WriteAtomic(srtPath, []byte(srt), 0o644); err != nil {
		return services.Wrap(services.ErrValidation, NameAlign, "write subtitles", workspace.KeyRenderEnSRT, err)
	}
	return nil
}
