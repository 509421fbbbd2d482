package phases

import (
	"context"
	"os"
	"path/filepath"

	"dubbin/internal/align"
	"dubbin/internal/logging"
	"dubbin/internal/pipeline"
	"dubbin/internal/services"
	"dubbin/internal/tts"
	"dubbin/internal/voice"
	"dubbin/internal/workspace"
)

// synthesizePhase resolves a voice per speaker, synthesizes every dub-model
// utterance through the content-hash cache, and fits each segment to its
// budget.
type synthesizePhase struct {
	env *Env
}

func (p *synthesizePhase) Name() string { return NameSynthesize }
func (p *synthesizePhase) Version() int { return 1 }

func (p *synthesizePhase) Requires() []string {
	return []string{workspace.KeyDubModel, pipeline.KeyShowSpeakerToRole, pipeline.KeyShowRoleCast}
}

func (p *synthesizePhase) Provides() []string {
	return []string{
		workspace.KeyVoiceAssignment,
		workspace.KeyTTSSegments,
		workspace.KeyTTSSegmentIndex,
		workspace.KeyTTSReport,
	}
}

func (p *synthesizePhase) Settings() map[string]any {
	cfg := p.env.Config.Synthesis
	return map[string]any{
		"resource_id":         cfg.ResourceID,
		"format":              cfg.Format,
		"sample_rate":         cfg.SampleRate,
		"language":            cfg.Language,
		"synthesizer_version": tts.SynthesizerVersion,
	}
}

func (p *synthesizePhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	dubPath, err := ws.ArtifactPath(workspace.KeyDubModel)
	if err != nil {
		return err
	}
	dub, err := align.LoadDubModel(dubPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "load dub model", workspace.KeyDubModel, err)
	}

	snapshot, err := p.resolveVoices(ws, dub)
	if err != nil {
		return err
	}

	segmentsDir, err := ws.ArtifactPath(workspace.KeyTTSSegments)
	if err != nil {
		return err
	}
	// Segments from a previous run with different utterance boundaries
	// would linger and pollute the directory fingerprint.
	if err := os.RemoveAll(segmentsDir); err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "clear segments", workspace.KeyTTSSegments, err)
	}
	if err := os.MkdirAll(segmentsDir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "create segments dir", workspace.KeyTTSSegments, err)
	}

	cache, err := tts.OpenCache(ws.CacheDir())
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "open cache", workspace.KeyTTSSegments, err)
	}
	defer cache.Close()

	cfg := p.env.Config.Synthesis
	engine := &tts.Engine{
		Client:     p.env.Speech,
		Cache:      cache,
		FFmpeg:     p.env.FFmpeg,
		FFprobeBin: p.env.FFprobeBin,
		Format:     cfg.Format,
		SampleRate: cfg.SampleRate,
		Language:   cfg.Language,
		Workers:    cfg.Workers,
		Logger:     p.env.logger(),
	}
	tmpDir := filepath.Join(ws.TempDir(), "synthesis")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "create scratch dir", workspace.KeyTTSSegments, err)
	}
	defer os.RemoveAll(tmpDir)

	index, report, err := engine.Run(ctx, dub, snapshot.Speakers, segmentsDir, tmpDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "synthesize", workspace.KeyTTSSegments, err)
	}

	indexPath, err := ws.ArtifactPath(workspace.KeyTTSSegmentIndex)
	if err != nil {
		return err
	}
	if err := index.Save(indexPath); err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "write segment index", workspace.KeyTTSSegmentIndex, err)
	}
	reportPath, err := ws.ArtifactPath(workspace.KeyTTSReport)
	if err != nil {
		return err
	}
	if err := report.Save(reportPath); err != nil {
		return services.Wrap(services.ErrValidation, NameSynthesize, "write report", workspace.KeyTTSReport, err)
	}

	p.env.logger().Info("synthesis finished",
		logging.String(logging.FieldPhase, NameSynthesize),
		logging.Int("synthesized", report.Synthesized),
		logging.Int("cached", report.Cached),
		logging.Int("failed", report.Failed))
	return nil
}

// resolveVoices maps every speaker in the dub model to a voice and persists
// the snapshot for auditing.
func (p *synthesizePhase) resolveVoices(ws *workspace.Workspace, dub *align.DubModel) (*voice.Snapshot, error) {
	roles, err := voice.LoadSpeakerToRole(ws.SpeakerToRolePath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, NameSynthesize, "load speaker registry", pipeline.KeyShowSpeakerToRole, err)
	}
	cast, err := voice.LoadRoleCast(ws.RoleCastPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, NameSynthesize, "load role cast", pipeline.KeyShowRoleCast, err)
	}

	genders := map[string]string{}
	for _, u := range dub.Utterances {
		genders[u.SpeakerID] = u.Gender
	}
	snapshot, err := voice.NewResolver(roles, cast).ResolveAll(ws.Episode, genders)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, NameSynthesize, "resolve voices", workspace.KeyVoiceAssignment, err)
	}

	snapPath, err := ws.ArtifactPath(workspace.KeyVoiceAssignment)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Save(snapPath); err != nil {
		return nil, services.Wrap(services.ErrValidation, NameSynthesize, "write voice assignment", workspace.KeyVoiceAssignment, err)
	}
	return snapshot, nil
}
