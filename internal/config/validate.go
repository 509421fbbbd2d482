package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateAlign(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		return errors.New("paths.workspace_root must be set")
	}
	return nil
}

func (c *Config) validateNormalize() error {
	if c.Normalize.SilenceGapMS <= 0 {
		return errors.New("normalize.silence_gap_ms must be positive")
	}
	if c.Normalize.MaxUtteranceMS <= c.Normalize.MinUtteranceMS {
		return errors.New("normalize.max_utterance_ms must exceed normalize.min_utterance_ms")
	}
	return nil
}

func (c *Config) validateAlign() error {
	if c.Align.MaxExtendMS < 0 {
		return errors.New("align.max_extend_ms must not be negative")
	}
	if c.Align.MaxExtendMS > 200 {
		return errors.New("align.max_extend_ms must not exceed 200")
	}
	if c.Align.MaxRate < 1.0 || c.Align.MaxRate > 1.5 {
		return fmt.Errorf("align.max_rate must be between 1.0 and 1.5, got %.2f", c.Align.MaxRate)
	}
	if c.Align.CueChars < 10 {
		return errors.New("align.cue_chars must be at least 10")
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	if c.Synthesis.Workers < 1 {
		return errors.New("synthesis.workers must be at least 1")
	}
	if c.Synthesis.SampleRate <= 0 {
		return errors.New("synthesis.sample_rate must be positive")
	}
	switch c.Synthesis.Format {
	case "pcm", "mp3", "ogg_opus":
	default:
		return fmt.Errorf("synthesis.format must be pcm, mp3, or ogg_opus, got %q", c.Synthesis.Format)
	}
	return nil
}

func (c *Config) validateMix() error {
	if c.Mix.TargetLUFS > 0 {
		return errors.New("mix.target_lufs must be negative (LUFS)")
	}
	if c.Mix.DuckRatio < 1 {
		return errors.New("mix.duck_ratio must be at least 1")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.PollDeadlineSec <= 0 {
		return errors.New("recognition.poll_deadline_seconds must be positive")
	}
	if c.Recognition.PollInitialMS <= 0 || c.Recognition.PollMaxMS < c.Recognition.PollInitialMS {
		return errors.New("recognition poll intervals must satisfy 0 < poll_initial_ms <= poll_max_ms")
	}
	return nil
}
