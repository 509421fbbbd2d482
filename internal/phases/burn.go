package phases

import (
	"context"

	"dubbin/internal/pipeline"
	"dubbin/internal/services"
	"dubbin/internal/workspace"
)

// burnPhase muxes the mixed track back into the video and burns the
// target-language subtitles into the picture.
type burnPhase struct {
	env *Env
}

func (p *burnPhase) Name() string { return NameBurn }
func (p *burnPhase) Version() int { return 1 }

func (p *burnPhase) Requires() []string {
	return []string{pipeline.KeyInputVideo, workspace.KeyAudioMix, workspace.KeyRenderEnSRT}
}

func (p *burnPhase) Provides() []string {
	return []string{workspace.KeyRenderVideo}
}

func (p *burnPhase) Settings() map[string]any {
	return map[string]any{
		"burn_subtitles": true,
	}
}

func (p *burnPhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	mixPath, err := ws.ArtifactPath(workspace.KeyAudioMix)
	if err != nil {
		return err
	}
	srtPath, err := ws.ArtifactPath(workspace.KeyRenderEnSRT)
	if err != nil {
		return err
	}
	out, err := ws.ArtifactPath(workspace.KeyRenderVideo)
	if err != nil {
		return err
	}
	if err := p.env.FFmpeg.BurnSubtitles(ctx, ws.VideoPath, mixPath, srtPath, out); err != nil {
		return services.Wrap(services.ErrExternalTool, NameBurn, "burn subtitles", workspace.KeyRenderVideo, err)
	}
	return nil
}
