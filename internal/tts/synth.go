package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"dubbin/internal/align"
	"dubbin/internal/fileutil"
	"dubbin/internal/logging"
	"dubbin/internal/media"
	"dubbin/internal/voice"
)

// SpeechRequest is one synthesis call.
type SpeechRequest struct {
	Text       string
	VoiceID    string
	Emotion    string
	Format     string
	SampleRate int
	Language   string
}

// SpeechClient produces raw audio for a request. Implementations return
// headerless PCM when Format is pcm.
type SpeechClient interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// Engine synthesizes every dub-model utterance, fitting each to its budget.
type Engine struct {
	Client     SpeechClient
	Cache      *Cache
	FFmpeg     *media.FFmpeg
	FFprobeBin string
	Format     string
	SampleRate int
	Language   string
	Workers    int
	Logger     *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return 4
	}
	return e.Workers
}

// Run synthesizes all utterances concurrently. Per-utterance service
// failures become silence segments recorded as failed; only infrastructure
// errors fail the whole run.
func (e *Engine) Run(ctx context.Context, dub *align.DubModel, assignments map[string]voice.Assignment, segmentsDir, tmpDir string) (*Index, *Report, error) {
	for _, u := range dub.Utterances {
		if _, ok := assignments[u.SpeakerID]; !ok {
			return nil, nil, fmt.Errorf("speaker %s has no voice assignment", u.SpeakerID)
		}
	}

	results := make([]Segment, len(dub.Utterances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, u := range dub.Utterances {
		g.Go(func() error {
			seg, err := e.synthesizeOne(gctx, u, assignments[u.SpeakerID].VoiceID, segmentsDir, tmpDir)
			if err != nil {
				return err
			}
			results[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	index := &Index{Segments: map[string]Segment{}}
	report := &Report{Total: len(results), Segments: make([]SegmentEntry, 0, len(results))}
	for _, seg := range results {
		index.Segments[seg.UttID] = seg
		report.Segments = append(report.Segments, SegmentEntry{
			UttID:     seg.UttID,
			BudgetMS:  seg.BudgetMS,
			RawMS:     seg.RawMS,
			TrimmedMS: seg.TrimmedMS,
			FinalMS:   seg.DurationMS,
			Rate:      seg.Rate,
			Status:    seg.Status,
			Cached:    seg.Cached,
			Error:     seg.Error,
		})
		switch {
		case seg.Status == StatusFailed:
			report.Failed++
			report.Failures = append(report.Failures, Failure{UttID: seg.UttID, Error: seg.Error})
		case seg.Cached:
			report.Cached++
		default:
			report.Synthesized++
		}
		if seg.Status == StatusOK && seg.Rate > 1.0 && seg.DurationMS > seg.BudgetMS {
			report.Overflowed++
		}
	}
	return index, report, nil
}

// synthesizeOne produces the final budget-fitted segment wav for one
// utterance.
func (e *Engine) synthesizeOne(ctx context.Context, u align.DubUtterance, voiceID, segmentsDir, tmpDir string) (Segment, error) {
	segPath := filepath.Join(segmentsDir, u.UttID+".wav")
	hash := ContentHash(u.TextTarget, voiceID, u.Emotion)
	seg := Segment{
		UttID:       u.UttID,
		WavPath:     segPath,
		VoiceID:     voiceID,
		BudgetMS:    u.BudgetMS,
		ContentHash: hash,
		Rate:        1.0,
		Status:      StatusOK,
	}

	if strings.TrimSpace(u.TextTarget) == "" {
		if err := e.FFmpeg.Silence(ctx, segPath, u.BudgetMS, e.SampleRate); err != nil {
			return seg, fmt.Errorf("render empty segment %s: %w", u.UttID, err)
		}
		seg.DurationMS = u.BudgetMS
		return seg, nil
	}

	blob, rawMS, cached, err := e.naturalBlob(ctx, u, voiceID, hash, tmpDir)
	if err != nil {
		// Service failure: substitute silence, keep the pipeline moving.
		e.logger().Warn("synthesis failed, substituting silence",
			logging.String(logging.FieldUtterance, u.UttID),
			logging.Error(err))
		if silErr := e.FFmpeg.Silence(ctx, segPath, u.BudgetMS, e.SampleRate); silErr != nil {
			return seg, fmt.Errorf("render fallback silence for %s: %w", u.UttID, silErr)
		}
		seg.Status = StatusFailed
		seg.Error = err.Error()
		seg.DurationMS = u.BudgetMS
		return seg, nil
	}
	seg.Cached = cached
	seg.RawMS = rawMS
	seg.TrimmedMS = blob.DurationMS

	rate, overflow := Fit(blob.DurationMS, u.BudgetMS, u.TTSPolicy.MaxRate)
	seg.Rate = rate
	if rate > 1.0 {
		e.logger().Debug("compressing segment",
			logging.String(logging.FieldUtterance, u.UttID),
			logging.Float64("rate", rate),
			logging.Int("expected_ms", FittedDurationMS(blob.DurationMS, rate)))
		if err := e.FFmpeg.Atempo(ctx, blob.BlobPath, segPath, rate); err != nil {
			return seg, fmt.Errorf("compress segment %s: %w", u.UttID, err)
		}
		measured, err := media.DurationMS(ctx, e.FFprobeBin, segPath)
		if err != nil {
			return seg, fmt.Errorf("measure segment %s: %w", u.UttID, err)
		}
		seg.DurationMS = measured
	} else {
		if err := fileutil.CopyAtomic(blob.BlobPath, segPath); err != nil {
			return seg, fmt.Errorf("place segment %s: %w", u.UttID, err)
		}
		seg.DurationMS = blob.DurationMS
	}
	if overflow {
		e.logger().Debug("segment overflows budget",
			logging.String(logging.FieldUtterance, u.UttID),
			logging.Int("budget_ms", u.BudgetMS),
			logging.Int("duration_ms", seg.DurationMS))
	}
	return seg, nil
}

// naturalBlob returns the trimmed, uncompressed synthesis result for the
// utterance, from cache when possible, along with the pre-trim duration.
// Cache hits report the stored trimmed duration as raw, since only the
// trimmed blob is kept.
func (e *Engine) naturalBlob(ctx context.Context, u align.DubUtterance, voiceID, hash, tmpDir string) (*Entry, int, bool, error) {
	if entry, ok, err := e.Cache.Lookup(hash); err != nil {
		return nil, 0, false, err
	} else if ok {
		return entry, entry.DurationMS, true, nil
	}

	audio, err := e.Client.Synthesize(ctx, SpeechRequest{
		Text:       u.TextTarget,
		VoiceID:    voiceID,
		Emotion:    u.Emotion,
		Format:     e.Format,
		SampleRate: e.SampleRate,
		Language:   e.Language,
	})
	if err != nil {
		return nil, 0, false, err
	}

	rawPath := filepath.Join(tmpDir, u.UttID+".raw")
	if err := fileutil.WriteAtomic(rawPath, audio, 0o644); err != nil {
		return nil, 0, false, err
	}
	defer os.Remove(rawPath)

	wavPath := filepath.Join(tmpDir, u.UttID+".wav")
	defer os.Remove(wavPath)
	if e.Format == "pcm" {
		if err := e.FFmpeg.FromPCM(ctx, rawPath, wavPath, e.SampleRate); err != nil {
			return nil, 0, false, err
		}
	} else {
		if err := e.FFmpeg.Run(ctx, "-i", rawPath, wavPath); err != nil {
			return nil, 0, false, err
		}
	}
	rawMS, err := media.DurationMS(ctx, e.FFprobeBin, wavPath)
	if err != nil {
		return nil, 0, false, err
	}

	trimmed := filepath.Join(tmpDir, u.UttID+".trimmed.wav")
	defer os.Remove(trimmed)
	if err := e.FFmpeg.TrimSilence(ctx, wavPath, trimmed); err != nil {
		return nil, 0, false, err
	}
	duration, err := media.DurationMS(ctx, e.FFprobeBin, trimmed)
	if err != nil {
		return nil, 0, false, err
	}

	entry, err := e.Cache.Store(hash, voiceID, TextHash(u.TextTarget), trimmed, duration)
	if err != nil {
		return nil, 0, false, err
	}
	return entry, rawMS, false, nil
}
