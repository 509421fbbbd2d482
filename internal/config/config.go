package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceRoot string `toml:"workspace_root"`
	LogDir        string `toml:"log_dir"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Recognition configures the speech recognition phase.
type Recognition struct {
	Preset          string   `toml:"preset"`
	Language        string   `toml:"language"`
	Hotwords        []string `toml:"hotwords"`
	UseVocals       bool     `toml:"use_vocals"`
	PollInitialMS   int      `toml:"poll_initial_ms"`
	PollMaxMS       int      `toml:"poll_max_ms"`
	PollDeadlineSec int      `toml:"poll_deadline_seconds"`
}

// Normalize configures utterance normalization.
type Normalize struct {
	SilenceGapMS    int    `toml:"silence_gap_ms"`
	MinUtteranceMS  int    `toml:"min_utterance_ms"`
	MaxUtteranceMS  int    `toml:"max_utterance_ms"`
	MaxMergeGapMS   int    `toml:"max_merge_gap_ms"`
	SourceLang      string `toml:"source_lang"`
	TrailingSilence int    `toml:"trailing_silence_cap_ms"`
}

// Translation configures the translate phase.
type Translation struct {
	Model          string   `toml:"model"`
	Temperature    float64  `toml:"temperature"`
	TargetLang     string   `toml:"target_lang"`
	EpisodeContext bool     `toml:"episode_context"`
	DomainHint     string   `toml:"domain_hint"`
	DomainTriggers []string `toml:"domain_triggers"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxAttempts    int      `toml:"max_attempts"`
}

// Align configures the align phase.
type Align struct {
	MaxExtendMS int     `toml:"max_extend_ms"`
	SafetyGapMS int     `toml:"safety_gap_ms"`
	CueChars    int     `toml:"cue_chars"`
	MaxRate     float64 `toml:"max_rate"`
}

// Synthesis configures the synthesize phase.
type Synthesis struct {
	ResourceID string `toml:"resource_id"`
	Format     string `toml:"format"`
	SampleRate int    `toml:"sample_rate"`
	Language   string `toml:"language"`
	Workers    int    `toml:"workers"`
}

// Mix configures the mix phase.
type Mix struct {
	TTSVolume           float64 `toml:"tts_volume"`
	AccompanimentVolume float64 `toml:"accompaniment_volume"`
	VocalsVolume        float64 `toml:"vocals_volume"`
	MuteOriginal        bool    `toml:"mute_original"`
	DuckThreshold       float64 `toml:"duck_threshold"`
	DuckRatio           float64 `toml:"duck_ratio"`
	DuckAttackMS        float64 `toml:"duck_attack_ms"`
	DuckReleaseMS       float64 `toml:"duck_release_ms"`
	TargetLUFS          float64 `toml:"target_lufs"`
	TruePeak            float64 `toml:"true_peak"`
}

// Separation configures vocal separation.
type Separation struct {
	Model  string `toml:"model"`
	Device string `toml:"device"`
	Shifts int    `toml:"shifts"`
}

// ObjectStore configures the bucket used to stage audio for recognition.
type ObjectStore struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	Prefix       string `toml:"prefix"`
	PresignHours int    `toml:"presign_hours"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Demucs  string `toml:"demucs"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Recognition Recognition `toml:"recognition"`
	Normalize   Normalize   `toml:"normalize"`
	Translation Translation `toml:"translation"`
	Align       Align       `toml:"align"`
	Synthesis   Synthesis   `toml:"synthesis"`
	Mix         Mix         `toml:"mix"`
	Separation  Separation  `toml:"separation"`
	ObjectStore ObjectStore `toml:"object_store"`
	Tools       Tools       `toml:"tools"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dubbin", "config.toml"), nil
}

// Load reads the config file at path, or the default path when path is empty.
// A missing file yields Default() without error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, err
		}
		resolved = defaultPath
	}
	resolved = ExpandPath(resolved)

	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		if strings.TrimSpace(path) != "" {
			return cfg, fmt.Errorf("config file not found: %s", resolved)
		}
		cfg.normalize()
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", resolved, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.normalize()
	return cfg, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (c *Config) normalize() {
	c.Paths.WorkspaceRoot = ExpandPath(c.Paths.WorkspaceRoot)
	c.Paths.LogDir = ExpandPath(c.Paths.LogDir)
	if c.Synthesis.Workers <= 0 {
		c.Synthesis.Workers = defaultSynthesisWorkers
	}
	if c.Align.MaxRate == 0 {
		c.Align.MaxRate = defaultMaxRate
	}
}
