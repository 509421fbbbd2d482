package align

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode"

	"dubbin/internal/fileutil"
	"dubbin/internal/subtitle"
)

// Cue is one rebuilt target-language display fragment. Fragments never
// cross an utterance boundary.
type Cue struct {
	UttID   string `json:"utt_id"`
	StartMS int    `json:"start_ms"`
	EndMS   int    `json:"end_ms"`
	Text    string `json:"text"`
}

// Alignment is the derived cue document written alongside the dub model.
type Alignment struct {
	Lang string `json:"lang"`
	Cues []Cue  `json:"cues"`
}

// Save writes the alignment atomically.
func (a *Alignment) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, a)
}

// LoadAlignment reads a cue document.
func LoadAlignment(path string) (*Alignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alignment: %w", err)
	}
	var a Alignment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse alignment %s: %w", path, err)
	}
	return &a, nil
}

// BuildCues splits each utterance's target text into fragments of at most
// cueChars characters, placed time-proportionally within the utterance
// span. Splits prefer the last space inside the window so words stay
// whole.
func BuildCues(m *DubModel, lang string, cueChars int) *Alignment {
	if cueChars <= 0 {
		cueChars = 42
	}
	a := &Alignment{Lang: lang}
	for _, u := range m.Utterances {
		fragments := splitText(u.TextTarget, cueChars)
		if len(fragments) == 0 {
			continue
		}
		total := 0
		for _, f := range fragments {
			total += len([]rune(f))
		}
		span := u.EndMS - u.StartMS
		cursor := u.StartMS
		consumed := 0
		for i, f := range fragments {
			consumed += len([]rune(f))
			end := u.StartMS + span*consumed/total
			if i == len(fragments)-1 {
				end = u.EndMS
			}
			a.Cues = append(a.Cues, Cue{UttID: u.UttID, StartMS: cursor, EndMS: end, Text: f})
			cursor = end
		}
	}
	return a
}

// SRTCues converts the alignment for SubRip rendering.
func (a *Alignment) SRTCues() []subtitle.SRTCue {
	out := make([]subtitle.SRTCue, len(a.Cues))
	for i, c := range a.Cues {
		out[i] = subtitle.SRTCue{StartMS: c.StartMS, EndMS: c.EndMS, Text: c.Text}
	}
	return out
}

// splitText chops text into runs of at most max characters, breaking at the
// last space inside the window when one exists.
func splitText(text string, max int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		if len(runes) <= max {
			if f := trimSpaces(runes); len(f) > 0 {
				out = append(out, string(f))
			}
			break
		}
		cut := max
		for i := max; i > 0; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		if f := trimSpaces(runes[:cut]); len(f) > 0 {
			out = append(out, string(f))
		}
		runes = runes[cut:]
	}
	return out
}

func trimSpaces(runes []rune) []rune {
	start, end := 0, len(runes)
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return runes[start:end]
}
