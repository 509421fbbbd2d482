package align

import (
	"encoding/json"
	"fmt"
	"os"

	"dubbin/internal/fileutil"
)

// TTSPolicy bounds how a synthesized segment may be fit to its budget.
type TTSPolicy struct {
	MaxRate float64 `json:"max_rate"`
}

// DubUtterance is one utterance of the dub model.
type DubUtterance struct {
	UttID      string    `json:"utt_id"`
	StartMS    int       `json:"start_ms"`
	EndMS      int       `json:"end_ms"`
	BudgetMS   int       `json:"budget_ms"`
	TextSource string    `json:"text_source"`
	TextTarget string    `json:"text_target"`
	SpeakerID  string    `json:"speaker_id"`
	Gender     string    `json:"gender"`
	Emotion    string    `json:"emotion,omitempty"`
	TTSPolicy  TTSPolicy `json:"tts_policy"`
}

// DubModel is the second authoritative document: everything synthesis and
// mixing need to place translated speech on the original timeline.
type DubModel struct {
	AudioDurationMS int            `json:"audio_duration_ms"`
	Utterances      []DubUtterance `json:"utterances"`
}

// LoadDubModel reads and validates a dub model document.
func LoadDubModel(path string) (*DubModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dub model: %w", err)
	}
	var m DubModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse dub model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("dub model %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the model atomically.
func (m *DubModel) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, m)
}

// Validate enforces the dub model invariants. Hand edits that break them
// fail the consuming phase instead of corrupting the mix.
func (m *DubModel) Validate() error {
	for i, u := range m.Utterances {
		if u.StartMS >= u.EndMS {
			return fmt.Errorf("utterance %s has empty span [%d,%d)", u.UttID, u.StartMS, u.EndMS)
		}
		if u.BudgetMS != u.EndMS-u.StartMS {
			return fmt.Errorf("utterance %s budget %d != span %d", u.UttID, u.BudgetMS, u.EndMS-u.StartMS)
		}
		if u.TTSPolicy.MaxRate < 1.0 || u.TTSPolicy.MaxRate > 1.5 {
			return fmt.Errorf("utterance %s max_rate %.2f out of [1.0,1.5]", u.UttID, u.TTSPolicy.MaxRate)
		}
		if i > 0 && u.StartMS < m.Utterances[i-1].EndMS {
			return fmt.Errorf("utterance %s overlaps previous utterance %s", u.UttID, m.Utterances[i-1].UttID)
		}
	}
	return nil
}
