package phases

import (
	"context"

	"dubbin/internal/media"
	"dubbin/internal/pipeline"
	"dubbin/internal/services"
	"dubbin/internal/workspace"
)

// demuxSampleRate is the rate the recognition service expects.
const demuxSampleRate = 16000

// demuxPhase extracts the source audio track from the input video as mono
// PCM wav.
type demuxPhase struct {
	env *Env
}

func (p *demuxPhase) Name() string { return NameDemux }
func (p *demuxPhase) Version() int { return 1 }

func (p *demuxPhase) Requires() []string {
	return []string{pipeline.KeyInputVideo}
}

func (p *demuxPhase) Provides() []string {
	return []string{workspace.KeyAudioSource}
}

func (p *demuxPhase) Settings() map[string]any {
	return map[string]any{
		"sample_rate": demuxSampleRate,
	}
}

func (p *demuxPhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	probe, err := media.Inspect(ctx, p.env.FFprobeBin, ws.VideoPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameDemux, "probe video", workspace.KeyAudioSource, err)
	}
	if probe.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, NameDemux, "probe video", "input has no audio stream", nil)
	}

	out, err := ws.ArtifactPath(workspace.KeyAudioSource)
	if err != nil {
		return err
	}
	if err := p.env.FFmpeg.ExtractAudio(ctx, ws.VideoPath, out, demuxSampleRate); err != nil {
		return services.Wrap(services.ErrExternalTool, NameDemux, "extract audio", workspace.KeyAudioSource, err)
	}
	return nil
}
