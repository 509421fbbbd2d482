// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dubbin/internal/workspace"
)

// Workspace builds a ready-to-use episode workspace under a temp root,
// including a placeholder video file the pipeline can fingerprint.
func Workspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	videoDir := filepath.Join(t.TempDir(), "myshow")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(videoDir, "ep01.mp4")
	if err := os.WriteFile(video, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.ForVideo(t.TempDir(), video)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	return ws
}

// WriteArtifact places content at an artifact key's path and returns the
// path.
func WriteArtifact(t *testing.T, ws *workspace.Workspace, key string, data []byte) string {
	t.Helper()
	path, err := ws.ArtifactPath(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
