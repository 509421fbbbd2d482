package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpeg wraps the ffmpeg binary for the audio operations the pipeline
// performs outside the mixer's filter graph.
type FFmpeg struct {
	Binary string
}

// NewFFmpeg builds a wrapper; an empty binary falls back to PATH lookup.
func NewFFmpeg(binary string) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{Binary: binary}
}

// Run executes ffmpeg with -y and the given arguments. Output files are
// written to a temp path by callers that need atomicity.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, f.Binary, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", firstArg(args), err, strings.TrimSpace(string(output)))
	}
	return nil
}

func firstArg(args []string) string {
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			return filepath.Base(args[i+1])
		}
	}
	return ""
}

// runTo renders to a sibling temp file and renames into place so consumers
// never observe a partial file.
func (f *FFmpeg) runTo(ctx context.Context, out string, args ...string) error {
	tmp := out + ".tmp" + filepath.Ext(out)
	if err := f.Run(ctx, append(args, tmp)...); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, out)
}

// ExtractAudio demuxes the video's audio track to mono PCM wav at the given
// sample rate.
func (f *FFmpeg) ExtractAudio(ctx context.Context, video, out string, sampleRate int) error {
	return f.runTo(ctx, out,
		"-i", video, "-vn", "-ac", "1", "-ar", fmt.Sprint(sampleRate), "-c:a", "pcm_s16le")
}

// FromPCM wraps headerless 16-bit mono PCM into a wav container.
func (f *FFmpeg) FromPCM(ctx context.Context, pcm, out string, sampleRate int) error {
	return f.runTo(ctx, out,
		"-f", "s16le", "-ar", fmt.Sprint(sampleRate), "-ac", "1", "-i", pcm, "-c:a", "pcm_s16le")
}

// TrimSilence removes leading and trailing silence.
func (f *FFmpeg) TrimSilence(ctx context.Context, in, out string) error {
	filter := "silenceremove=start_periods=1:start_silence=0.05:start_threshold=-45dB," +
		"areverse,silenceremove=start_periods=1:start_silence=0.05:start_threshold=-45dB,areverse"
	return f.runTo(ctx, out, "-i", in, "-af", filter)
}

// Atempo compresses time by the given rate without changing pitch. Rates
// the pipeline produces stay within a single atempo filter's range.
func (f *FFmpeg) Atempo(ctx context.Context, in, out string, rate float64) error {
	if rate < 0.5 || rate > 2.0 {
		return fmt.Errorf("atempo rate %.3f out of range", rate)
	}
	return f.runTo(ctx, out, "-i", in, "-af", fmt.Sprintf("atempo=%.4f", rate))
}

// PadTo pads with trailing silence, or truncates, to exactly durationMS.
func (f *FFmpeg) PadTo(ctx context.Context, in, out string, durationMS int) error {
	filter := fmt.Sprintf("apad,atrim=end=%s", msToSeconds(durationMS))
	return f.runTo(ctx, out, "-i", in, "-af", filter)
}

// Silence renders durationMS of mono silence.
func (f *FFmpeg) Silence(ctx context.Context, out string, durationMS, sampleRate int) error {
	return f.runTo(ctx, out,
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", sampleRate),
		"-t", msToSeconds(durationMS), "-c:a", "pcm_s16le")
}

// MuxAudio replaces the video's audio track with the given file, copying
// the video stream untouched.
func (f *FFmpeg) MuxAudio(ctx context.Context, video, audio, out string) error {
	return f.runTo(ctx, out,
		"-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
		"-shortest")
}

// BurnSubtitles renders a subtitle file into the video stream while
// replacing the audio track.
func (f *FFmpeg) BurnSubtitles(ctx context.Context, video, audio, srt, out string) error {
	return f.runTo(ctx, out,
		"-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-vf", fmt.Sprintf("subtitles=%s", escapeFilterPath(srt)),
		"-c:a", "aac", "-b:a", "192k",
		"-shortest")
}

// msToSeconds renders milliseconds as a fractional seconds argument.
func msToSeconds(ms int) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// escapeFilterPath escapes characters the subtitles filter treats
// specially.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`)
	return r.Replace(path)
}
