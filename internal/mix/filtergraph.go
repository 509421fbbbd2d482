package mix

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dubbin/internal/media"
)

// Settings control levels, ducking, and loudness of the final mix.
type Settings struct {
	TTSVolume           float64
	AccompanimentVolume float64
	// KeepVocals blends the original vocal stem under the dub at
	// VocalsVolume instead of muting it.
	KeepVocals    bool
	VocalsVolume  float64
	DuckThreshold float64
	DuckRatio     float64
	DuckAttackMS  float64
	DuckReleaseMS float64
	TargetLUFS    float64
	TruePeak      float64
}

// DefaultSettings mirror the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		TTSVolume:           1.4,
		AccompanimentVolume: 0.8,
		VocalsVolume:        0.15,
		DuckThreshold:       0.05,
		DuckRatio:           10,
		DuckAttackMS:        20,
		DuckReleaseMS:       400,
		TargetLUFS:          -16,
		TruePeak:            -1.5,
	}
}

// BuildFilterGraph renders the ffmpeg filter graph for a plan. Input 0 is
// the accompaniment; inputs 1..N are the segments in placement order.
func BuildFilterGraph(plan *Plan, s Settings) string {
	var parts []string

	// Each segment: optional truncation, then absolute placement.
	labels := make([]string, len(plan.Placements))
	for i, p := range plan.Placements {
		label := fmt.Sprintf("seg%d", i)
		labels[i] = "[" + label + "]"
		var chain []string
		if p.LimitMS > 0 {
			chain = append(chain, fmt.Sprintf("atrim=end=%s", msSeconds(p.LimitMS)))
		}
		chain = append(chain, fmt.Sprintf("adelay=%d:all=1", p.DelayMS))
		parts = append(parts, fmt.Sprintf("[%d:a]%s[%s]", i+1, strings.Join(chain, ","), label))
	}

	// Sum speech on a canvas the length of the source audio. normalize=0
	// keeps absolute levels so sparse speech is not boosted.
	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:normalize=0:duration=longest,volume=%s[speech]",
		strings.Join(labels, ""), len(labels), trimFloat(s.TTSVolume)))
	parts = append(parts, "[speech]asplit=2[sc][speechout]")

	// Background bed: accompaniment, plus the original vocals when kept.
	// The vocal stem is the last input so segment indices stay stable.
	if s.KeepVocals {
		parts = append(parts, fmt.Sprintf("[0:a]volume=%s[acc]", trimFloat(s.AccompanimentVolume)))
		parts = append(parts, fmt.Sprintf("[%d:a]volume=%s[voc]", len(plan.Placements)+1, trimFloat(s.VocalsVolume)))
		parts = append(parts, "[acc][voc]amix=inputs=2:normalize=0[bg]")
	} else {
		parts = append(parts, fmt.Sprintf("[0:a]volume=%s[bg]", trimFloat(s.AccompanimentVolume)))
	}
	parts = append(parts, fmt.Sprintf("[bg][sc]sidechaincompress=threshold=%s:ratio=%s:attack=%s:release=%s[ducked]",
		trimFloat(s.DuckThreshold), trimFloat(s.DuckRatio), trimFloat(s.DuckAttackMS), trimFloat(s.DuckReleaseMS)))

	// Combine, force the exact source duration, then normalize loudness.
	parts = append(parts, "[ducked][speechout]amix=inputs=2:normalize=0[combined]")
	parts = append(parts, fmt.Sprintf("[combined]apad,atrim=end=%s,loudnorm=I=%s:TP=%s:LRA=11[out]",
		msSeconds(plan.DurationMS), trimFloat(s.TargetLUFS), trimFloat(s.TruePeak)))

	return strings.Join(parts, ";")
}

// Render executes the mix to outPath. vocals is read only when
// Settings.KeepVocals is set.
func Render(ctx context.Context, ffmpeg *media.FFmpeg, plan *Plan, accompaniment, vocals, outPath string, s Settings) error {
	if len(plan.Placements) == 0 {
		// Nothing to dub: the mix is the accompaniment padded to length.
		return ffmpeg.PadTo(ctx, accompaniment, outPath, plan.DurationMS)
	}
	args := []string{"-i", accompaniment}
	for _, p := range plan.Placements {
		args = append(args, "-i", p.WavPath)
	}
	if s.KeepVocals {
		args = append(args, "-i", vocals)
	}
	args = append(args,
		"-filter_complex", BuildFilterGraph(plan, s),
		"-map", "[out]",
		"-c:a", "pcm_s16le",
		outPath+".tmp.wav")
	if err := ffmpeg.Run(ctx, args...); err != nil {
		return fmt.Errorf("render mix: %w", err)
	}
	return os.Rename(outPath+".tmp.wav", outPath)
}

func msSeconds(ms int) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

func trimFloat(f float64) string {
	out := fmt.Sprintf("%g", f)
	return out
}
