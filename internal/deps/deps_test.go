package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: ""},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing binary: %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unset command: %#v", results[2])
	}
}

func TestFirstMissing(t *testing.T) {
	statuses := []Status{
		{Name: "ffmpeg", Available: true},
		{Name: "demucs", Available: false, Detail: `binary "demucs" not found`},
		{Name: "nice-to-have", Available: false, Optional: true},
	}
	err := FirstMissing(statuses)
	if err == nil {
		t.Fatal("expected error for missing required binary")
	}
	if !strings.Contains(err.Error(), "demucs") {
		t.Errorf("error = %v", err)
	}
	if strings.Contains(err.Error(), "nice-to-have") {
		t.Errorf("optional dependency reported as required: %v", err)
	}

	statuses[1].Available = true
	if err := FirstMissing(statuses); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
