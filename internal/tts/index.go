package tts

import (
	"encoding/json"
	"fmt"
	"os"

	"dubbin/internal/fileutil"
)

// Segment status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Segment records one utterance's synthesis result. DurationMS is the final
// on-disk duration; RawMS and TrimmedMS trace the audio before and after
// silence trimming (equal for cache hits, where only the trimmed blob
// survives).
type Segment struct {
	UttID       string  `json:"utt_id"`
	WavPath     string  `json:"wav_path"`
	VoiceID     string  `json:"voice_id"`
	BudgetMS    int     `json:"budget_ms"`
	RawMS       int     `json:"raw_ms"`
	TrimmedMS   int     `json:"trimmed_ms"`
	DurationMS  int     `json:"duration_ms"`
	Rate        float64 `json:"rate"`
	ContentHash string  `json:"content_hash"`
	Status      string  `json:"status"`
	Cached      bool    `json:"cached,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Index maps utterances to their synthesized segments.
type Index struct {
	Segments map[string]Segment `json:"segments"`
}

// Save writes the index atomically.
func (x *Index) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, x)
}

// LoadIndex reads a segment index.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segment index: %w", err)
	}
	var x Index
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("parse segment index %s: %w", path, err)
	}
	if x.Segments == nil {
		x.Segments = map[string]Segment{}
	}
	return &x, nil
}

// Failure notes one failed synthesis in the report.
type Failure struct {
	UttID string `json:"utt_id"`
	Error string `json:"error"`
}

// SegmentEntry is the per-utterance line of the synthesis report.
type SegmentEntry struct {
	UttID     string  `json:"utt_id"`
	BudgetMS  int     `json:"budget_ms"`
	RawMS     int     `json:"raw_ms"`
	TrimmedMS int     `json:"trimmed_ms"`
	FinalMS   int     `json:"final_ms"`
	Rate      float64 `json:"rate"`
	Status    string  `json:"status"`
	Cached    bool    `json:"cached,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Report summarizes a synthesis run for operators.
type Report struct {
	Total       int            `json:"total"`
	Synthesized int            `json:"synthesized"`
	Cached      int            `json:"cached"`
	Failed      int            `json:"failed"`
	Overflowed  int            `json:"overflowed"`
	Segments    []SegmentEntry `json:"segments"`
	Failures    []Failure      `json:"failures,omitempty"`
}

// Save writes the report atomically.
func (r *Report) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, r)
}

// LoadReport reads a synthesis report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synthesis report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse synthesis report %s: %w", path, err)
	}
	return &r, nil
}
