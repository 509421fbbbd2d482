package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dubbin/internal/fingerprint"
	"dubbin/internal/workspace"
)

// Pseudo artifact keys for inputs that live outside the episode workspace.
const (
	KeyInputVideo        = "input.video"
	KeyShowSpeakerToRole = "show.speaker_to_role"
	KeyShowRoleCast      = "show.role_cast"
	KeyShowGlossary      = "show.glossary"
)

// FingerprintAbsent marks an optional input that does not exist on disk. Its
// appearance later still invalidates the consuming phase.
const FingerprintAbsent = "absent"

// Phase is one step of the pipeline. Phases declare what they read and write
// by artifact key so the runner can decide freshness without knowing their
// internals.
type Phase interface {
	// Name is the stable phase identifier used in the manifest.
	Name() string
	// Version changes whenever the phase's algorithm changes in a way that
	// invalidates prior outputs.
	Version() int
	// Requires lists the artifact keys the phase reads.
	Requires() []string
	// Provides lists the artifact keys the phase writes.
	Provides() []string
	// Settings returns the configuration values that affect this phase's
	// output. Changing any of them reruns the phase.
	Settings() map[string]any
	// Run executes the phase against the workspace.
	Run(ctx context.Context, ws *workspace.Workspace) error
}

// optionalInputs are inputs a phase tolerates missing. Show-level registries
// start empty and grow as episodes are processed.
var optionalInputs = map[string]bool{
	KeyShowSpeakerToRole: true,
	KeyShowRoleCast:      true,
	KeyShowGlossary:      true,
}

func artifactLocation(ws *workspace.Workspace, key string) (string, error) {
	switch key {
	case KeyInputVideo:
		return ws.VideoPath, nil
	case KeyShowSpeakerToRole:
		return ws.SpeakerToRolePath(), nil
	case KeyShowRoleCast:
		return ws.RoleCastPath(), nil
	case KeyShowGlossary:
		return ws.GlossaryPath(), nil
	default:
		return ws.ArtifactPath(key)
	}
}

// fingerprintArtifact hashes the artifact behind a key. Optional inputs that
// do not exist yield FingerprintAbsent; required ones yield an error, as does
// a file squatting where a directory artifact belongs (or vice versa).
func fingerprintArtifact(ws *workspace.Workspace, key string) (string, error) {
	path, err := artifactLocation(ws, key)
	if err != nil {
		return "", err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && optionalInputs[key] {
			return FingerprintAbsent, nil
		}
		return "", fmt.Errorf("artifact %s: %w", key, statErr)
	}
	if workspace.IsDirectoryArtifact(key) != info.IsDir() {
		return "", fmt.Errorf("artifact %s: unexpected %s at %s", key, kindName(info.IsDir()), path)
	}
	fp, err := fingerprint.Path(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint artifact %s: %w", key, err)
	}
	return fp, nil
}

func kindName(isDir bool) string {
	if isDir {
		return "directory"
	}
	return "file"
}

// fingerprintInputs hashes every declared input of a phase. Inputs that do
// not exist yet hash as absent: planning a fresh workspace must not fail, and
// the input's later appearance still invalidates the phase.
func fingerprintInputs(ws *workspace.Workspace, p Phase) (map[string]string, error) {
	inputs := make(map[string]string, len(p.Requires()))
	for _, key := range p.Requires() {
		fp, err := fingerprintArtifact(ws, key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				inputs[key] = FingerprintAbsent
				continue
			}
			return nil, err
		}
		inputs[key] = fp
	}
	return inputs, nil
}

// fingerprintOutputs hashes every provided artifact of a phase. Outputs are
// never optional: a succeeded phase must have produced everything it
// declares.
func fingerprintOutputs(ws *workspace.Workspace, p Phase) (map[string]string, error) {
	outputs := make(map[string]string, len(p.Provides()))
	for _, key := range p.Provides() {
		path, err := artifactLocation(ws, key)
		if err != nil {
			return nil, err
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("phase output %s missing: %w", key, statErr)
		}
		if workspace.IsDirectoryArtifact(key) != info.IsDir() {
			return nil, fmt.Errorf("phase output %s: unexpected %s at %s", key, kindName(info.IsDir()), path)
		}
		fp, err := fingerprint.Path(path)
		if err != nil {
			return nil, fmt.Errorf("fingerprint output %s: %w", key, err)
		}
		outputs[key] = fp
	}
	return outputs, nil
}
