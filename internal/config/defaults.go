package config

const (
	defaultWorkspaceRoot    = "~/.local/share/dubbin/workspaces"
	defaultLogDir           = "~/.local/share/dubbin/logs"
	defaultLogLevel         = "info"
	defaultLogFormat        = "console"
	defaultRecognitionPre   = "asr_spk_semantic"
	defaultSourceLang       = "zh"
	defaultTargetLang       = "en"
	defaultPollInitialMS    = 2000
	defaultPollMaxMS        = 30000
	defaultPollDeadlineSec  = 900
	defaultSilenceGapMS     = 450
	defaultMinUtteranceMS   = 900
	defaultMaxUtteranceMS   = 8000
	defaultMaxMergeGapMS    = 1000
	defaultTrailingCapMS    = 350
	defaultTranslateModel   = "gpt-4o-mini"
	defaultTranslateTemp    = 0.3
	defaultMaxExtendMS      = 200
	defaultSafetyGapMS      = 60
	defaultCueChars         = 42
	defaultMaxRate          = 1.3
	defaultTTSResourceID    = "seed-tts-1.0"
	defaultTTSFormat        = "pcm"
	defaultTTSSampleRate    = 24000
	defaultTTSLanguage      = "en-US"
	defaultSynthesisWorkers = 4
	defaultTTSVolume        = 1.4
	defaultAccompVolume     = 0.8
	defaultVocalsVolume     = 0.15
	defaultDuckThreshold    = 0.05
	defaultDuckRatio        = 10.0
	defaultDuckAttackMS     = 20.0
	defaultDuckReleaseMS    = 400.0
	defaultTargetLUFS       = -16.0
	defaultTruePeak         = -1.5
	defaultDemucsModel      = "htdemucs"
	defaultDemucsDevice     = "cpu"
	defaultPresignHours     = 6
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceRoot: defaultWorkspaceRoot,
			LogDir:        defaultLogDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Recognition: Recognition{
			Preset:          defaultRecognitionPre,
			Language:        "zh-CN",
			PollInitialMS:   defaultPollInitialMS,
			PollMaxMS:       defaultPollMaxMS,
			PollDeadlineSec: defaultPollDeadlineSec,
		},
		Normalize: Normalize{
			SilenceGapMS:    defaultSilenceGapMS,
			MinUtteranceMS:  defaultMinUtteranceMS,
			MaxUtteranceMS:  defaultMaxUtteranceMS,
			MaxMergeGapMS:   defaultMaxMergeGapMS,
			SourceLang:      defaultSourceLang,
			TrailingSilence: defaultTrailingCapMS,
		},
		Translation: Translation{
			Model:          defaultTranslateModel,
			Temperature:    defaultTranslateTemp,
			TargetLang:     defaultTargetLang,
			EpisodeContext: true,
			TimeoutSeconds: 60,
			MaxAttempts:    5,
		},
		Align: Align{
			MaxExtendMS: defaultMaxExtendMS,
			SafetyGapMS: defaultSafetyGapMS,
			CueChars:    defaultCueChars,
			MaxRate:     defaultMaxRate,
		},
		Synthesis: Synthesis{
			ResourceID: defaultTTSResourceID,
			Format:     defaultTTSFormat,
			SampleRate: defaultTTSSampleRate,
			Language:   defaultTTSLanguage,
			Workers:    defaultSynthesisWorkers,
		},
		Mix: Mix{
			TTSVolume:           defaultTTSVolume,
			AccompanimentVolume: defaultAccompVolume,
			VocalsVolume:        defaultVocalsVolume,
			MuteOriginal:        true,
			DuckThreshold:       defaultDuckThreshold,
			DuckRatio:           defaultDuckRatio,
			DuckAttackMS:        defaultDuckAttackMS,
			DuckReleaseMS:       defaultDuckReleaseMS,
			TargetLUFS:          defaultTargetLUFS,
			TruePeak:            defaultTruePeak,
		},
		Separation: Separation{
			Model:  defaultDemucsModel,
			Device: defaultDemucsDevice,
			Shifts: 1,
		},
		ObjectStore: ObjectStore{
			PresignHours: defaultPresignHours,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Demucs:  "demucs",
		},
	}
}
