package phases

import (
	"context"
	"fmt"
	"strings"

	"dubbin/internal/logging"
	"dubbin/internal/mt"
	"dubbin/internal/pipeline"
	"dubbin/internal/services"
	"dubbin/internal/subtitle"
	"dubbin/internal/workspace"
)

// translatePhase translates the subtitle model utterance by utterance. The
// exact request and response per utterance are persisted as JSONL so a
// failed or curious operator can inspect them.
type translatePhase struct {
	env *Env
}

func (p *translatePhase) Name() string { return NameTranslate }
func (p *translatePhase) Version() int { return 1 }

func (p *translatePhase) Requires() []string {
	return []string{workspace.KeySubtitleModel, pipeline.KeyShowGlossary}
}

func (p *translatePhase) Provides() []string {
	return []string{workspace.KeyMTInput, workspace.KeyMTOutput}
}

func (p *translatePhase) Settings() map[string]any {
	cfg := p.env.Config.Translation
	return map[string]any{
		"model":           cfg.Model,
		"temperature":     cfg.Temperature,
		"target_lang":     cfg.TargetLang,
		"episode_context": cfg.EpisodeContext,
		"domain_hint":     cfg.DomainHint,
		"domain_triggers": strings.Join(cfg.DomainTriggers, ","),
	}
}

func (p *translatePhase) Run(ctx context.Context, ws *workspace.Workspace) error {
	modelPath, err := ws.ArtifactPath(workspace.KeySubtitleModel)
	if err != nil {
		return err
	}
	model, err := subtitle.Load(modelPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, NameTranslate, "load subtitle model", workspace.KeySubtitleModel, err)
	}
	glossary, err := mt.LoadGlossary(ws.GlossaryPath())
	if err != nil {
		return services.Wrap(services.ErrValidation, NameTranslate, "load glossary", pipeline.KeyShowGlossary, err)
	}

	cfg := p.env.Config.Translation
	opts := mt.PromptOptions{
		SourceLang:     p.env.Config.Normalize.SourceLang,
		TargetLang:     cfg.TargetLang,
		DomainHint:     cfg.DomainHint,
		DomainTriggers: cfg.DomainTriggers,
	}
	if cfg.EpisodeContext {
		opts.EpisodeContext = episodeText(model)
	}
	system := mt.SystemPrompt(opts.SourceLang, opts.TargetLang)

	inputs := make([]mt.InputRecord, 0, len(model.Utterances))
	outputs := make([]mt.OutputRecord, 0, len(model.Utterances))
	for _, u := range model.Utterances {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTransient, NameTranslate, "translate", "cancelled", err)
		}
		prompt := mt.BuildPrompt(u.Text, glossary.Matching(u.Text), opts)
		inputs = append(inputs, mt.InputRecord{UttID: u.UttID, Text: prompt})

		target, err := p.env.Translator.Translate(ctx, system, prompt)
		if err != nil {
			return fmt.Errorf("%s: translate %s: %w", NameTranslate, u.UttID, err)
		}
		outputs = append(outputs, mt.OutputRecord{
			UttID:      u.UttID,
			TextSource: u.Text,
			TextTarget: target,
			Model:      cfg.Model,
		})
		p.env.logger().Debug("utterance translated",
			logging.String(logging.FieldPhase, NameTranslate),
			logging.String(logging.FieldUtterance, u.UttID))
	}

	inputPath, err := ws.ArtifactPath(workspace.KeyMTInput)
	if err != nil {
		return err
	}
	if err := mt.WriteInputs(inputPath, inputs); err != nil {
		return services.Wrap(services.ErrValidation, NameTranslate, "write inputs", workspace.KeyMTInput, err)
	}
	outputPath, err := ws.ArtifactPath(workspace.KeyMTOutput)
	if err != nil {
		return err
	}
	if err := mt.WriteOutputs(outputPath, outputs); err != nil {
		return services.Wrap(services.ErrValidation, NameTranslate, "write outputs", workspace.KeyMTOutput, err)
	}
	return nil
}

// episodeText joins every utterance's source text, giving the model the
// whole episode as context for each line.
func episodeText(model *subtitle.Model) string {
	var b strings.Builder
	for _, u := range model.Utterances {
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
