package subtitle

import (
	"fmt"
	"unicode/utf8"
)

// Build produces the subtitle model from normalized utterances. Identifiers
// are assigned in timeline order; each utterance starts with a single cue
// covering its full span, which alignment may later rebuild.
func Build(normalized []Normalized, lang string, durationMS int) *Model {
	m := &Model{
		Schema: Schema{Name: SchemaName, Version: SchemaVersion},
		Audio:  Audio{Lang: lang, DurationMS: durationMS},
	}
	for i, n := range normalized {
		utt := Utterance{
			UttID: fmt.Sprintf("utt_%04d", i+1),
			Speaker: Speaker{
				ID:         n.Speaker,
				Gender:     n.Gender,
				Emotion:    n.Emotion,
				SpeechRate: speechRate(n.Text, n.EndMS-n.StartMS),
			},
			StartMS: n.StartMS,
			EndMS:   n.EndMS,
			Text:    n.Text,
			Cues: []Cue{{
				StartMS: n.StartMS,
				EndMS:   n.EndMS,
				Source:  CueText{Lang: lang, Text: n.Text},
			}},
		}
		m.Utterances = append(m.Utterances, utt)
	}
	return m
}

// speechRate is source characters per second, rounded to two decimals.
func speechRate(text string, durationMS int) float64 {
	if durationMS <= 0 {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	rate := float64(chars) * 1000 / float64(durationMS)
	return float64(int(rate*100+0.5)) / 100
}

// Speakers lists the distinct speaker ids in timeline order of first
// appearance.
func (m *Model) Speakers() []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range m.Utterances {
		if !seen[u.Speaker.ID] {
			seen[u.Speaker.ID] = true
			out = append(out, u.Speaker.ID)
		}
	}
	return out
}
