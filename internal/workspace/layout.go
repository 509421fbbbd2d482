package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact keys use the form "domain.object". Every key a phase can require
// or provide resolves to a deterministic workspace-relative path.
const (
	KeyAudioSource        = "audio.source"
	KeyAudioVocals        = "audio.vocals"
	KeyAudioAccompaniment = "audio.accompaniment"
	KeyAudioMix           = "audio.mix"
	KeyRecognitionRaw     = "source.recognition_raw"
	KeySubtitleModel      = "source.subtitle_model"
	KeyDubModel           = "source.dub_model"
	KeySubtitleAlign      = "derive.subtitle_align"
	KeyVoiceAssignment    = "derive.voice_assignment"
	KeyMTInput            = "mt.input"
	KeyMTOutput           = "mt.output"
	KeyTTSSegments        = "tts.segments"
	KeyTTSSegmentIndex    = "tts.segment_index"
	KeyTTSReport          = "tts.report"
	KeyRenderEnSRT        = "render.en_srt"
	KeyRenderZhSRT        = "render.zh_srt"
	KeyRenderVideo        = "render.video"
)

var artifactPaths = map[string]string{
	KeyAudioSource:        "audio/source.wav",
	KeyAudioVocals:        "audio/vocals.wav",
	KeyAudioAccompaniment: "audio/accompaniment.wav",
	KeyAudioMix:           "audio/mix.wav",
	KeyRecognitionRaw:     "source/recognition_raw.json",
	KeySubtitleModel:      "source/subtitle_model.json",
	KeyDubModel:           "source/dub_model.json",
	KeySubtitleAlign:      "derive/subtitle_align.json",
	KeyVoiceAssignment:    "derive/voice_assignment.json",
	KeyMTInput:            "mt/input.jsonl",
	KeyMTOutput:           "mt/output.jsonl",
	KeyTTSSegments:        "tts/segments",
	KeyTTSSegmentIndex:    "tts/segments.json",
	KeyTTSReport:          "tts/report.json",
	KeyRenderEnSRT:        "render/en.srt",
	KeyRenderZhSRT:        "render/zh.srt",
	KeyRenderVideo:        "render/dubbed.mp4",
}

// directoryArtifacts lists keys whose artifact is a directory rather than a
// single file.
var directoryArtifacts = map[string]bool{
	KeyTTSSegments: true,
}

// Workspace is one episode's working directory plus its show-level parent.
type Workspace struct {
	// Root is the episode workspace directory.
	Root string
	// ShowDir is one directory up; show-level registries live here.
	ShowDir string
	// Episode is the episode identifier (workspace directory name).
	Episode string
	// VideoPath is the absolute path of the source video.
	VideoPath string
}

// ForVideo derives the workspace for a video file under the configured root:
// <root>/<show>/<episode> where show is the video's parent directory name and
// episode is the video file stem.
func ForVideo(root, videoPath string) (*Workspace, error) {
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve video path: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	if stem == "" {
		return nil, fmt.Errorf("cannot derive episode name from %s", videoPath)
	}
	show := filepath.Base(filepath.Dir(abs))
	showDir := filepath.Join(root, show)
	return &Workspace{
		Root:      filepath.Join(showDir, stem),
		ShowDir:   showDir,
		Episode:   stem,
		VideoPath: abs,
	}, nil
}

// Ensure creates the workspace directory tree.
func (w *Workspace) Ensure() error {
	for _, dir := range []string{"", "source", "derive", "mt", "tts", "tts/segments", "tts/cache", "audio", "render", "tmp"} {
		if err := os.MkdirAll(filepath.Join(w.Root, dir), 0o755); err != nil {
			return fmt.Errorf("create workspace directory: %w", err)
		}
	}
	for _, dir := range []string{"voices", "dict"} {
		if err := os.MkdirAll(filepath.Join(w.ShowDir, dir), 0o755); err != nil {
			return fmt.Errorf("create show directory: %w", err)
		}
	}
	return nil
}

// ArtifactPath resolves an artifact key to an absolute path inside the
// workspace.
func (w *Workspace) ArtifactPath(key string) (string, error) {
	rel, ok := artifactPaths[key]
	if !ok {
		return "", fmt.Errorf("unknown artifact key %q", key)
	}
	return filepath.Join(w.Root, filepath.FromSlash(rel)), nil
}

// ArtifactRelPath resolves an artifact key to its workspace-relative path.
func ArtifactRelPath(key string) (string, error) {
	rel, ok := artifactPaths[key]
	if !ok {
		return "", fmt.Errorf("unknown artifact key %q", key)
	}
	return rel, nil
}

// IsDirectoryArtifact reports whether the key names a directory artifact.
func IsDirectoryArtifact(key string) bool {
	return directoryArtifacts[key]
}

// ManifestPath returns the path of the episode manifest.
func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.Root, "manifest.json")
}

// TempDir returns the scratch directory for intermediate files.
func (w *Workspace) TempDir() string {
	return filepath.Join(w.Root, "tmp")
}

// CacheDir returns the synthesis blob cache directory.
func (w *Workspace) CacheDir() string {
	return filepath.Join(w.Root, "tts", "cache")
}

// SegmentPath returns the output wav for one utterance.
func (w *Workspace) SegmentPath(uttID string) string {
	return filepath.Join(w.Root, "tts", "segments", uttID+".wav")
}

// SpeakerToRolePath returns the show-level speaker→role registry path.
func (w *Workspace) SpeakerToRolePath() string {
	return filepath.Join(w.ShowDir, "voices", "speaker_to_role.json")
}

// RoleCastPath returns the show-level role→voice registry path.
func (w *Workspace) RoleCastPath() string {
	return filepath.Join(w.ShowDir, "voices", "role_cast.json")
}

// GlossaryPath returns the show-level glossary path.
func (w *Workspace) GlossaryPath() string {
	return filepath.Join(w.ShowDir, "dict", "glossary.json")
}
