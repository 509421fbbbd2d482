package asr

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Word is one recognized token with its time span. Speaker is set when the
// provider labels individual words, which can differ from the utterance
// label mid-utterance.
type Word struct {
	Text    string `json:"text"`
	StartMS int    `json:"start_time"`
	EndMS   int    `json:"end_time"`
	Speaker string `json:"speaker,omitempty"`
}

// Utterance is one provider-segmented span of speech. Speaker, gender, and
// emotion arrive as string additions on the raw payload.
type Utterance struct {
	Text    string `json:"text"`
	StartMS int    `json:"start_time"`
	EndMS   int    `json:"end_time"`
	Speaker string `json:"speaker,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Emotion string `json:"emotion,omitempty"`
	Words   []Word `json:"words,omitempty"`
}

// Transcript is the parsed recognition result.
type Transcript struct {
	Text       string      `json:"text"`
	DurationMS int         `json:"duration_ms"`
	Utterances []Utterance `json:"utterances"`
}

// rawResponse mirrors only the parts of the provider payload the pipeline
// reads. Everything else in the raw artifact is preserved on disk but
// ignored here.
type rawResponse struct {
	AudioInfo struct {
		Duration int `json:"duration"`
	} `json:"audio_info"`
	Result struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text      string `json:"text"`
			StartTime int    `json:"start_time"`
			EndTime   int    `json:"end_time"`
			Words     []struct {
				Text      string `json:"text"`
				StartTime int    `json:"start_time"`
				EndTime   int    `json:"end_time"`
				Additions struct {
					Speaker string `json:"speaker"`
				} `json:"additions"`
			} `json:"words"`
			Additions struct {
				Speaker string `json:"speaker"`
				Gender  string `json:"gender"`
				Emotion string `json:"emotion"`
			} `json:"additions"`
		} `json:"utterances"`
	} `json:"result"`
}

// Parse decodes a raw recognition payload into a transcript. Utterances come
// back ordered by start time regardless of provider ordering.
func Parse(data []byte) (*Transcript, error) {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse recognition payload: %w", err)
	}
	t := &Transcript{
		Text:       raw.Result.Text,
		DurationMS: raw.AudioInfo.Duration,
	}
	for _, u := range raw.Result.Utterances {
		utt := Utterance{
			Text:    strings.TrimSpace(u.Text),
			StartMS: u.StartTime,
			EndMS:   u.EndTime,
			Speaker: u.Additions.Speaker,
			Gender:  normalizeGender(u.Additions.Gender),
			Emotion: u.Additions.Emotion,
		}
		for _, w := range u.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			speaker := w.Additions.Speaker
			if speaker == "" {
				speaker = utt.Speaker
			}
			utt.Words = append(utt.Words, Word{Text: text, StartMS: w.StartTime, EndMS: w.EndTime, Speaker: speaker})
		}
		if utt.Text == "" && len(utt.Words) == 0 {
			continue
		}
		t.Utterances = append(t.Utterances, utt)
	}
	sort.SliceStable(t.Utterances, func(i, j int) bool {
		return t.Utterances[i].StartMS < t.Utterances[j].StartMS
	})
	return t, nil
}

func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "male", "m":
		return "male"
	case "female", "f":
		return "female"
	default:
		return "unknown"
	}
}

// SpeakerGenders derives a gender per speaker label by majority vote across
// that speaker's utterances. Ties and absent labels resolve to unknown.
func (t *Transcript) SpeakerGenders() map[string]string {
	votes := map[string]map[string]int{}
	for _, u := range t.Utterances {
		if u.Speaker == "" {
			continue
		}
		if votes[u.Speaker] == nil {
			votes[u.Speaker] = map[string]int{}
		}
		votes[u.Speaker][u.Gender]++
	}
	genders := make(map[string]string, len(votes))
	for speaker, counts := range votes {
		best, bestCount, tied := "unknown", 0, false
		for gender, n := range counts {
			if gender == "unknown" {
				continue
			}
			switch {
			case n > bestCount:
				best, bestCount, tied = gender, n, false
			case n == bestCount && gender != best:
				tied = true
			}
		}
		if bestCount == 0 || tied {
			best = "unknown"
		}
		genders[speaker] = best
	}
	return genders
}
