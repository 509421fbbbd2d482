package align

import (
	"fmt"

	"dubbin/internal/mt"
	"dubbin/internal/subtitle"
)

// Options tune budget extension and cue rebuilding.
type Options struct {
	// MaxExtendMS is how far an utterance end may grow into trailing
	// silence. Capped at 200.
	MaxExtendMS int
	// SafetyGapMS is the minimum silence preserved before the next
	// utterance.
	SafetyGapMS int
	// CueChars is the maximum characters per rebuilt cue fragment.
	CueChars int
	// MaxRate is the default per-utterance time compression ceiling.
	MaxRate float64
}

func (o Options) withDefaults() Options {
	if o.MaxExtendMS <= 0 {
		o.MaxExtendMS = 200
	}
	if o.SafetyGapMS < 0 {
		o.SafetyGapMS = 0
	}
	if o.CueChars <= 0 {
		o.CueChars = 42
	}
	if o.MaxRate == 0 {
		o.MaxRate = 1.3
	}
	return o
}

// Build produces the dub model from the subtitle model and per-utterance
// translations. Every subtitle utterance must have a translation; a missing
// one is an error rather than a silently untranslated line.
func Build(sub *subtitle.Model, translations map[string]mt.OutputRecord, opts Options) (*DubModel, error) {
	opts = opts.withDefaults()
	model := &DubModel{AudioDurationMS: sub.Audio.DurationMS}
	for i, u := range sub.Utterances {
		rec, ok := translations[u.UttID]
		if !ok {
			return nil, fmt.Errorf("utterance %s has no translation", u.UttID)
		}
		end := extendEnd(sub, i, opts)
		model.Utterances = append(model.Utterances, DubUtterance{
			UttID:      u.UttID,
			StartMS:    u.StartMS,
			EndMS:      end,
			BudgetMS:   end - u.StartMS,
			TextSource: u.Text,
			TextTarget: rec.TextTarget,
			SpeakerID:  u.Speaker.ID,
			Gender:     u.Speaker.Gender,
			Emotion:    u.Speaker.Emotion,
			TTSPolicy:  TTSPolicy{MaxRate: opts.MaxRate},
		})
	}
	return model, nil
}

// extendEnd grows the utterance end into trailing silence: at most
// MaxExtendMS, never past the next utterance's start minus the safety gap,
// never past the end of the audio, and never below the original end.
func extendEnd(sub *subtitle.Model, i int, opts Options) int {
	u := sub.Utterances[i]
	end := u.EndMS + opts.MaxExtendMS
	limit := sub.Audio.DurationMS
	if i+1 < len(sub.Utterances) {
		limit = sub.Utterances[i+1].StartMS - opts.SafetyGapMS
	}
	if end > limit {
		end = limit
	}
	if end < u.EndMS {
		end = u.EndMS
	}
	return end
}
