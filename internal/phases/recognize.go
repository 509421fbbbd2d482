package phases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"dubbin/internal/fileutil"
	"dubbin/internal/logging"
	"dubbin/internal/services"
	"dubbin/internal/services/volcasr"
	"dubbin/internal/workspace"
)

// recognizePhase stages the audio in the object store, runs the
// asynchronous recognition job, and persists the provider response
// verbatim as the raw recognition artifact.
type recognizePhase struct {
	env *Env
}

func (p *recognizePhase) Name() string { return NameRecognize }
func (p *recognizePhase) Version() int { return 1 }

// inputKey is the audio the recognizer hears: isolated vocals when
// configured, otherwise the full source track.
func (p *recognizePhase) inputKey() string {
	if p.env.Config.Recognition.UseVocals {
		return workspace.KeyAudioVocals
	}
	return workspace.KeyAudioSource
}

func (p *recognizePhase) Requires() []string {
	return []string{p.inputKey()}
}

func (p *recognizePhase) Provides() []string {
	return []string{workspace.KeyRecognitionRaw}
}

func (p *recognizePhase) Settings() map[string]any {
	cfg := p.env.Config.Recognition
	return map[string]any{
		"preset":     cfg.Preset,
		"language":   cfg.Language,
		"hotwords":   strings.Join(cfg.Hotwords, ","),
		"use_vocals": cfg.UseVocals,
	}
}

func (p *recognizePhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	audioPath, err := ws.ArtifactPath(p.inputKey())
	if err != nil {
		return err
	}
	if p.env.Stager == nil {
		return services.Wrap(services.ErrConfiguration, NameRecognize, "stage audio", "object_store.bucket is not configured", nil)
	}

	objectName := ws.Episode + "/" + filepath.Base(audioPath)
	audioURL, err := p.env.Stager.Stage(ctx, audioPath, objectName)
	if err != nil {
		// Service errors arrive already classified; add phase context only.
		return fmt.Errorf("%s: stage audio: %s: %w", NameRecognize, p.inputKey(), err)
	}
	p.env.logger().Info("audio staged for recognition",
		logging.String(logging.FieldPhase, NameRecognize),
		logging.String("object", objectName))

	cfg := p.env.Config.Recognition
	raw, err := p.env.Recognizer.Recognize(ctx, volcasr.Request{
		AudioURL: audioURL,
		Format:   "wav",
		Language: cfg.Language,
		Hotwords: cfg.Hotwords,
	})
	if err != nil {
		return fmt.Errorf("%s: recognize: %s: %w", NameRecognize, workspace.KeyRecognitionRaw, err)
	}

	out, err := ws.ArtifactPath(workspace.KeyRecognitionRaw)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(out, raw, 0o644); err != nil {
		return services.Wrap(services.ErrValidation, NameRecognize, "persist response", workspace.KeyRecognitionRaw, err)
	}
	return nil
}
