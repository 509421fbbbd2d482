package sep

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dubbin/internal/fileutil"
)

// Options configure the source separation run.
type Options struct {
	Binary string
	Model  string
	Device string
	Shifts int
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Binary) == "" {
		o.Binary = "demucs"
	}
	if o.Model == "" {
		o.Model = "htdemucs"
	}
	if o.Device == "" {
		o.Device = "cpu"
	}
	if o.Shifts <= 0 {
		o.Shifts = 1
	}
	return o
}

// Separate splits an audio file into vocals and accompaniment using demucs
// two-stem mode, then copies the stems to the requested paths. scratchDir
// holds demucs's own output tree and may be deleted afterwards.
func Separate(ctx context.Context, audio, vocalsOut, accompanimentOut, scratchDir string, opts Options) error {
	opts = opts.withDefaults()
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("create separation scratch dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, opts.Binary,
		"--two-stems=vocals",
		"-n", opts.Model,
		"-d", opts.Device,
		"--shifts", fmt.Sprint(opts.Shifts),
		"-o", scratchDir,
		audio)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("demucs: %w: %s", err, strings.TrimSpace(string(output)))
	}

	stem := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
	stemDir := filepath.Join(scratchDir, opts.Model, stem)
	if err := fileutil.CopyAtomic(filepath.Join(stemDir, "vocals.wav"), vocalsOut); err != nil {
		return fmt.Errorf("collect vocals stem: %w", err)
	}
	if err := fileutil.CopyAtomic(filepath.Join(stemDir, "no_vocals.wav"), accompanimentOut); err != nil {
		return fmt.Errorf("collect accompaniment stem: %w", err)
	}
	return nil
}
