package phases

import (
	"context"
	"os"
	"path/filepath"

	"dubbin/internal/sep"
	"dubbin/internal/services"
	"dubbin/internal/workspace"
)

// separatePhase splits the source audio into vocals and accompaniment via
// the external separation tool.
type separatePhase struct {
	env *Env
}

func (p *separatePhase) Name() string { return NameSeparate }
func (p *separatePhase) Version() int { return 1 }

func (p *separatePhase) Requires() []string {
	return []string{workspace.KeyAudioSource}
}

func (p *separatePhase) Provides() []string {
	return []string{workspace.KeyAudioVocals, workspace.KeyAudioAccompaniment}
}

func (p *separatePhase) Settings() map[string]any {
	cfg := p.env.Config.Separation
	return map[string]any{
		"model":  cfg.Model,
		"device": cfg.Device,
		"shifts": cfg.Shifts,
	}
}

func (p *separatePhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	source, err := ws.ArtifactPath(workspace.KeyAudioSource)
	if err != nil {
		return err
	}
	vocals, err := ws.ArtifactPath(workspace.KeyAudioVocals)
	if err != nil {
		return err
	}
	accompaniment, err := ws.ArtifactPath(workspace.KeyAudioAccompaniment)
	if err != nil {
		return err
	}

	scratch := filepath.Join(ws.TempDir(), "separation")
	defer os.RemoveAll(scratch)

	cfg := p.env.Config
	err = sep.Separate(ctx, source, vocals, accompaniment, scratch, sep.Options{
		Binary: cfg.Tools.Demucs,
		Model:  cfg.Separation.Model,
		Device: cfg.Separation.Device,
		Shifts: cfg.Separation.Shifts,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, NameSeparate, "separate vocals", workspace.KeyAudioVocals, err)
	}
	return nil
}
