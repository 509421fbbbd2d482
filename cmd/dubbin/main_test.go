package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubbin/internal/phases"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[paths]\n" +
		"workspace_root = \"" + filepath.Join(dir, "workspaces") + "\"\n" +
		"log_dir = \"" + filepath.Join(dir, "logs") + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPhasesCommandListsAll(t *testing.T) {
	out, err := runCLI(t, []string{"phases"})
	if err != nil {
		t.Fatalf("phases: %v", err)
	}
	for _, name := range phases.Names() {
		if !strings.Contains(out, name) {
			t.Errorf("output missing phase %s:\n%s", name, out)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to overwrite.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Error("expected error on existing config")
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, []string{"--config", cfgPath, "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	// File overrides and defaults both surface.
	if !strings.Contains(out, "workspace_root") || !strings.Contains(out, "workspaces") {
		t.Errorf("output missing configured workspace root:\n%s", out)
	}
	if !strings.Contains(out, "ffmpeg") {
		t.Errorf("output missing tool defaults:\n%s", out)
	}
}

func TestRunDryRunPlansFreshWorkspace(t *testing.T) {
	cfgPath := writeTestConfig(t)
	videoDir := filepath.Join(t.TempDir(), "myshow")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(videoDir, "ep01.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, []string{"--config", cfgPath, "run", video, "--dry-run"})
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "never ran") {
		t.Errorf("expected fresh plan, got:\n%s", out)
	}
	for _, name := range phases.Names() {
		if !strings.Contains(out, name) {
			t.Errorf("plan missing phase %s", name)
		}
	}
}

func TestRunRejectsMissingVideo(t *testing.T) {
	cfgPath := writeTestConfig(t)
	video := filepath.Join(t.TempDir(), "myshow", "ep01.mp4")

	_, err := runCLI(t, []string{"--config", cfgPath, "run", video, "--dry-run"})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing-video error, got %v", err)
	}
}

func TestStatusOnFreshWorkspace(t *testing.T) {
	cfgPath := writeTestConfig(t)
	videoDir := filepath.Join(t.TempDir(), "myshow")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(videoDir, "ep01.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, []string{"--config", cfgPath, "status", video})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "never ran") {
		t.Errorf("expected never-ran rows, got:\n%s", out)
	}
}
