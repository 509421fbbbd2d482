package subtitle

import (
	"encoding/json"
	"fmt"
	"os"

	"dubbin/internal/fileutil"
)

// Schema identity for the subtitle model document.
const (
	SchemaName    = "subtitle.model"
	SchemaVersion = 1
)

// Schema names the document type so hand-editors and future readers can
// tell what they are looking at.
type Schema struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// Audio describes the source track the model was built from.
type Audio struct {
	Lang       string `json:"lang"`
	DurationMS int    `json:"duration_ms"`
}

// Speaker carries per-utterance speaker metadata. SpeechRate is source-text
// characters per second, used downstream to pick synthesis pacing.
type Speaker struct {
	ID         string  `json:"id"`
	Gender     string  `json:"gender"`
	SpeechRate float64 `json:"speech_rate,omitempty"`
	Emotion    string  `json:"emotion,omitempty"`
}

// CueText is one language rendering of a cue.
type CueText struct {
	Lang string `json:"lang"`
	Text string `json:"text"`
}

// Cue is a display fragment within an utterance.
type Cue struct {
	StartMS int     `json:"start_ms"`
	EndMS   int     `json:"end_ms"`
	Source  CueText `json:"source"`
}

// Utterance is one speaker-contiguous span of speech.
type Utterance struct {
	UttID   string  `json:"utt_id"`
	Speaker Speaker `json:"speaker"`
	StartMS int     `json:"start_ms"`
	EndMS   int     `json:"end_ms"`
	Text    string  `json:"text"`
	Cues    []Cue   `json:"cues"`
}

// Model is the first authoritative document of the pipeline. Humans may
// edit it between runs; consumers never mutate it.
type Model struct {
	Schema     Schema      `json:"schema"`
	Audio      Audio       `json:"audio"`
	Utterances []Utterance `json:"utterances"`
}

// Load reads and validates a subtitle model document.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse subtitle model %s: %w", path, err)
	}
	if m.Schema.Name != SchemaName {
		return nil, fmt.Errorf("document %s is %q, want %q", path, m.Schema.Name, SchemaName)
	}
	for i, u := range m.Utterances {
		if u.StartMS >= u.EndMS {
			return nil, fmt.Errorf("utterance %s has empty span [%d,%d)", u.UttID, u.StartMS, u.EndMS)
		}
		if i > 0 && u.StartMS < m.Utterances[i-1].StartMS {
			return nil, fmt.Errorf("utterance %s out of order", u.UttID)
		}
	}
	return &m, nil
}

// Save writes the model atomically.
func (m *Model) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, m)
}
