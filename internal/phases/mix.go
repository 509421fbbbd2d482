package phases

import (
	"context"

	"dubbin/internal/align"
	"dubbin/internal/mix"
	"dubbin/internal/services"
	"dubbin/internal/tts"
	"dubbin/internal/workspace"
)

// mixPhase places every synthesized segment at its absolute start time over
// the ducked accompaniment and renders the final dubbed track at the exact
// source duration.
type mixPhase struct {
	env *Env
}

func (p *mixPhase) Name() string { return NameMix }
func (p *mixPhase) Version() int { return 1 }

func (p *mixPhase) Requires() []string {
	keys := []string{
		workspace.KeyDubModel,
		workspace.KeyTTSSegmentIndex,
		workspace.KeyTTSSegments,
		workspace.KeyAudioAccompaniment,
	}
	if !p.env.Config.Mix.MuteOriginal {
		keys = append(keys, workspace.KeyAudioVocals)
	}
	return keys
}

func (p *mixPhase) Provides() []string {
	return []string{workspace.KeyAudioMix}
}

func (p *mixPhase) Settings() map[string]any {
	cfg := p.env.Config.Mix
	return map[string]any{
		"tts_volume":           cfg.TTSVolume,
		"accompaniment_volume": cfg.AccompanimentVolume,
		"vocals_volume":        cfg.VocalsVolume,
		"mute_original":        cfg.MuteOriginal,
		"duck_threshold":       cfg.DuckThreshold,
		"duck_ratio":           cfg.DuckRatio,
		"duck_attack_ms":       cfg.DuckAttackMS,
		"duck_release_ms":      cfg.DuckReleaseMS,
		"target_lufs":          cfg.TargetLUFS,
		"true_peak":            cfg.TruePeak,
	}
}

func (p *mixPhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	dubPath, err := ws.ArtifactPath(workspace.KeyDubModel)
	if err != nil {
		return err
	}
	dub, err := align.LoadDubModel(dubPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameMix, "load dub model", workspace.KeyDubModel, err)
	}
	indexPath, err := ws.ArtifactPath(workspace.KeyTTSSegmentIndex)
	if err != nil {
		return err
	}
	index, err := tts.LoadIndex(indexPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameMix, "load segment index", workspace.KeyTTSSegmentIndex, err)
	}

	plan, err := mix.BuildPlan(dub, index)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameMix, "build plan", workspace.KeyAudioMix, err)
	}

	accompaniment, err := ws.ArtifactPath(workspace.KeyAudioAccompaniment)
	if err != nil {
		return err
	}
	out, err := ws.ArtifactPath(workspace.KeyAudioMix)
	if err != nil {
		return err
	}
	cfg := p.env.Config.Mix
	settings := mix.Settings{
		TTSVolume:           cfg.TTSVolume,
		AccompanimentVolume: cfg.AccompanimentVolume,
		KeepVocals:          !cfg.MuteOriginal,
		VocalsVolume:        cfg.VocalsVolume,
		DuckThreshold:       cfg.DuckThreshold,
		DuckRatio:           cfg.DuckRatio,
		DuckAttackMS:        cfg.DuckAttackMS,
		DuckReleaseMS:       cfg.DuckReleaseMS,
		TargetLUFS:          cfg.TargetLUFS,
		TruePeak:            cfg.TruePeak,
	}
	vocals := ""
	if settings.KeepVocals {
		if vocals, err = ws.ArtifactPath(workspace.KeyAudioVocals); err != nil {
			return err
		}
	}
	if err := mix.Render(ctx, p.env.FFmpeg, plan, accompaniment, vocals, out, settings); err != nil {
		return services.Wrap(services.ErrExternalTool, NameMix, "render mix", workspace.KeyAudioMix, err)
	}
	return nil
}
