package subtitle

import (
	"strings"

	"dubbin/internal/asr"
)

// NormalizeOptions tune utterance boundary detection. Zero values take the
// package defaults.
type NormalizeOptions struct {
	// SilenceGapMS opens a new utterance when the inter-word gap reaches
	// this many milliseconds.
	SilenceGapMS int
	// MinUtteranceMS merges fragments shorter than this into a same-speaker
	// neighbor when the gap between them is below the silence threshold.
	MinUtteranceMS int
	// MaxUtteranceMS caps the span of a single utterance.
	MaxUtteranceMS int
	// MaxMergeGapMS caps the gap across which a short fragment may merge.
	MaxMergeGapMS int
	// TrailingCapMS extends an utterance's end into the silence after it by
	// at most this many milliseconds, giving synthesis headroom. Zero
	// disables the extension.
	TrailingCapMS int
}

const (
	defaultSilenceGapMS   = 450
	defaultMinUtteranceMS = 900
	defaultMaxUtteranceMS = 8000
	defaultMaxMergeGapMS  = 1000
)

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.SilenceGapMS <= 0 {
		o.SilenceGapMS = defaultSilenceGapMS
	}
	if o.MinUtteranceMS <= 0 {
		o.MinUtteranceMS = defaultMinUtteranceMS
	}
	if o.MaxUtteranceMS <= 0 {
		o.MaxUtteranceMS = defaultMaxUtteranceMS
	}
	if o.MaxMergeGapMS <= 0 {
		o.MaxMergeGapMS = defaultMaxMergeGapMS
	}
	return o
}

// Normalized is one utterance after boundary detection, before it becomes a
// subtitle model entry.
type Normalized struct {
	Speaker string
	Gender  string
	Emotion string
	StartMS int
	EndMS   int
	Words   []asr.Word
	Text    string
}

// flatWord is a word annotated with its provider utterance's speaker data.
type flatWord struct {
	asr.Word
	speaker string
	gender  string
	emotion string
}

// Normalize re-segments the provider word stream into utterances. A new
// utterance opens on a silence gap or on any speaker change (hard boundary);
// short fragments merge into a neighbor and over-long spans are re-split.
// Trailing punctuation from the provider's utterance text is reattached to
// words first, so the emitted text carries it.
func Normalize(tr *asr.Transcript, opts NormalizeOptions) []Normalized {
	opts = opts.withDefaults()
	genders := tr.SpeakerGenders()

	var words []flatWord
	for _, u := range tr.Utterances {
		for _, w := range asr.AttachPunctuation(u) {
			// Word-level speaker labels override the utterance label, so a
			// mid-utterance speaker change still lands on a hard boundary.
			speaker := w.Speaker
			if speaker == "" {
				speaker = u.Speaker
			}
			gender := genders[speaker]
			if gender == "" {
				gender = "unknown"
			}
			words = append(words, flatWord{Word: w, speaker: speaker, gender: gender, emotion: u.Emotion})
		}
	}
	if len(words) == 0 {
		return nil
	}

	candidates := group(words, opts.SilenceGapMS)
	candidates = mergeShort(candidates, opts)
	candidates = splitLong(candidates, opts)

	out := make([]Normalized, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, emit(c))
	}
	extendTrailing(out, opts.TrailingCapMS)
	return out
}

// extendTrailing absorbs part of the silence after each utterance into its
// span, capped so neighbors never touch. The last utterance is left alone;
// silence after it belongs to nobody.
func extendTrailing(utts []Normalized, capMS int) {
	if capMS <= 0 {
		return
	}
	for i := 0; i+1 < len(utts); i++ {
		gap := utts[i+1].StartMS - utts[i].EndMS
		if gap <= 0 {
			continue
		}
		ext := gap
		if ext > capMS {
			ext = capMS
		}
		utts[i].EndMS += ext
	}
}

func group(words []flatWord, gapMS int) [][]flatWord {
	var candidates [][]flatWord
	current := []flatWord{words[0]}
	for _, w := range words[1:] {
		prev := current[len(current)-1]
		switch {
		case w.speaker != prev.speaker:
			// Speaker change is a hard boundary regardless of gap.
			candidates = append(candidates, current)
			current = []flatWord{w}
		case w.StartMS-prev.EndMS >= gapMS:
			candidates = append(candidates, current)
			current = []flatWord{w}
		default:
			current = append(current, w)
		}
	}
	return append(candidates, current)
}

// mergeShort folds fragments under the minimum duration into the preceding
// same-speaker utterance. The preceding utterance must itself meet the
// minimum: two adjacent fragments separated by a real pause stay split.
// Merges never cross MaxMergeGapMS or grow past the maximum span.
func mergeShort(candidates [][]flatWord, opts NormalizeOptions) [][]flatWord {
	merged := make([][]flatWord, 0, len(candidates))
	for _, c := range candidates {
		if len(merged) > 0 && span(c) < opts.MinUtteranceMS {
			prev := merged[len(merged)-1]
			gap := c[0].StartMS - prev[len(prev)-1].EndMS
			if c[0].speaker == prev[0].speaker &&
				span(prev) >= opts.MinUtteranceMS &&
				gap <= opts.MaxMergeGapMS &&
				c[len(c)-1].EndMS-prev[0].StartMS <= opts.MaxUtteranceMS {
				merged[len(merged)-1] = append(prev, c...)
				continue
			}
		}
		merged = append(merged, c)
	}
	return merged
}

// splitLong breaks candidates over the maximum span. An over-long candidate
// is first re-grouped at half the silence threshold; anything still too long
// is hard-split at the largest internal gap.
func splitLong(candidates [][]flatWord, opts NormalizeOptions) [][]flatWord {
	out := make([][]flatWord, 0, len(candidates))
	for _, c := range candidates {
		if span(c) <= opts.MaxUtteranceMS {
			out = append(out, c)
			continue
		}
		for _, sub := range group(c, opts.SilenceGapMS/2) {
			if span(sub) <= opts.MaxUtteranceMS {
				out = append(out, sub)
				continue
			}
			out = append(out, hardSplit(sub, opts.MaxUtteranceMS)...)
		}
	}
	return out
}

func hardSplit(c []flatWord, maxMS int) [][]flatWord {
	var out [][]flatWord
	for len(c) > 1 && span(c) > maxMS {
		cut := bestCut(c, maxMS)
		out = append(out, c[:cut])
		c = c[cut:]
	}
	return append(out, c)
}

// bestCut picks the word index to split before: the largest inter-word gap
// within the first maxMS of the chunk. Fully contiguous speech falls back to
// the last sentence end inside the window, then to the last word boundary.
func bestCut(c []flatWord, maxMS int) int {
	limit := c[0].StartMS + maxMS
	cut := 1
	maxGap := 0
	sentenceCut := 0
	for i := 1; i < len(c) && c[i-1].EndMS <= limit; i++ {
		gap := c[i].StartMS - c[i-1].EndMS
		if gap > maxGap {
			maxGap = gap
			cut = i
		} else if maxGap == 0 {
			cut = i
		}
		if asr.EndsSentence(c[i-1].Text) {
			sentenceCut = i
		}
	}
	if maxGap == 0 && sentenceCut > 0 {
		return sentenceCut
	}
	return cut
}

func span(c []flatWord) int {
	return c[len(c)-1].EndMS - c[0].StartMS
}

func emit(c []flatWord) Normalized {
	n := Normalized{
		Speaker: c[0].speaker,
		Gender:  c[0].gender,
		Emotion: c[0].emotion,
		StartMS: c[0].StartMS,
		EndMS:   c[len(c)-1].EndMS,
	}
	var text strings.Builder
	for _, w := range c {
		n.Words = append(n.Words, w.Word)
		text.WriteString(w.Text)
	}
	n.Text = text.String()
	return n
}
