package subtitle

import (
	"fmt"
	"testing"

	"dubbin/internal/asr"
)

func singleSpeaker(words ...asr.Word) *asr.Transcript {
	return &asr.Transcript{Utterances: []asr.Utterance{{
		Speaker: "1",
		Gender:  "male",
		StartMS: words[0].StartMS,
		EndMS:   words[len(words)-1].EndMS,
		Words:   words,
	}}}
}

func TestNormalizeSilenceGapSplits(t *testing.T) {
	tr := singleSpeaker(
		asr.Word{Text: "A", StartMS: 0, EndMS: 400},
		asr.Word{Text: "B", StartMS: 420, EndMS: 800},
		asr.Word{Text: "C", StartMS: 1300, EndMS: 1600},
	)
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[0].StartMS != 0 || got[0].EndMS != 800 || got[0].Text != "AB" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].StartMS != 1300 || got[1].EndMS != 1600 || got[1].Text != "C" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestNormalizeSpeakerChangeSplits(t *testing.T) {
	tr := &asr.Transcript{Utterances: []asr.Utterance{
		{Speaker: "1", Gender: "male", Words: []asr.Word{{Text: "A", StartMS: 0, EndMS: 400}}},
		{Speaker: "2", Gender: "female", Words: []asr.Word{{Text: "B", StartMS: 410, EndMS: 700}}},
	}}
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2 despite 10ms gap", len(got))
	}
	if got[0].Speaker != "1" || got[1].Speaker != "2" {
		t.Errorf("speakers = %s/%s", got[0].Speaker, got[1].Speaker)
	}
	if got[0].Gender != "male" || got[1].Gender != "female" {
		t.Errorf("genders = %s/%s", got[0].Gender, got[1].Gender)
	}
}

func TestNormalizeWordSpeakerSplitsMidUtterance(t *testing.T) {
	// The provider sometimes relabels individual words inside one utterance;
	// the hard speaker boundary applies there too.
	tr := &asr.Transcript{Utterances: []asr.Utterance{{
		Speaker: "1",
		Gender:  "male",
		Words: []asr.Word{
			{Text: "A", StartMS: 0, EndMS: 400},
			{Text: "B", StartMS: 420, EndMS: 800, Speaker: "2"},
		},
	}}}
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2 at the word-level speaker change", len(got))
	}
	if got[0].Speaker != "1" || got[1].Speaker != "2" {
		t.Errorf("speakers = %s/%s", got[0].Speaker, got[1].Speaker)
	}
}

func TestNormalizeMaxDurationSplits(t *testing.T) {
	// Ten contiguous 900ms words spanning 9000ms.
	var words []asr.Word
	for i := 0; i < 10; i++ {
		words = append(words, asr.Word{Text: fmt.Sprintf("w%d", i), StartMS: i * 900, EndMS: (i + 1) * 900})
	}
	got := Normalize(singleSpeaker(words...), NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	// Split lands on the last word boundary at or under 8000ms.
	if got[0].EndMS != 7200 {
		t.Errorf("first ends at %d, want 7200", got[0].EndMS)
	}
	if got[1].StartMS != 7200 || got[1].EndMS != 9000 {
		t.Errorf("second = [%d,%d]", got[1].StartMS, got[1].EndMS)
	}
}

func TestNormalizeHardSplitPrefersSentenceEnd(t *testing.T) {
	// Fully contiguous speech leaves no gap to split at; the forced split
	// lands after the sentence-ending word instead of the window edge.
	var words []asr.Word
	texts := []string{"w0", "w1", "w2。", "w3", "w4", "w5", "w6", "w7", "w8"}
	for i, text := range texts {
		words = append(words, asr.Word{Text: text, StartMS: i * 1000, EndMS: (i + 1) * 1000})
	}
	got := Normalize(singleSpeaker(words...), NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[0].EndMS != 3000 {
		t.Errorf("first ends at %d, want 3000 (after the sentence)", got[0].EndMS)
	}
}

func TestNormalizeShortFragmentMergesIntoNeighbor(t *testing.T) {
	// A 300ms fragment 500ms after an established utterance folds back in
	// even though the silence threshold split them.
	tr := singleSpeaker(
		asr.Word{Text: "A", StartMS: 0, EndMS: 1200},
		asr.Word{Text: "b", StartMS: 1700, EndMS: 2000},
	)
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1 (short fragment merged)", len(got))
	}
	if got[0].StartMS != 0 || got[0].EndMS != 2000 || got[0].Text != "Ab" {
		t.Errorf("merged = %+v", got[0])
	}
}

func TestNormalizeShortFragmentKeepsWideGap(t *testing.T) {
	// Same shape, but the gap exceeds the merge limit.
	tr := singleSpeaker(
		asr.Word{Text: "A", StartMS: 0, EndMS: 1200},
		asr.Word{Text: "b", StartMS: 2300, EndMS: 2600},
	)
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2 across a %dms gap", len(got), 1100)
	}
}

func TestNormalizeAdjacentFragmentsStaySplit(t *testing.T) {
	// Neither neighbor meets the minimum duration: the silence split between
	// two fragments reflects a real pause and survives.
	tr := singleSpeaker(
		asr.Word{Text: "A", StartMS: 0, EndMS: 400},
		asr.Word{Text: "B", StartMS: 420, EndMS: 800},
		asr.Word{Text: "C", StartMS: 1300, EndMS: 1600},
	)
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[0].Text != "AB" || got[1].Text != "C" {
		t.Errorf("texts = %q, %q", got[0].Text, got[1].Text)
	}
}

func TestNormalizeMaxDurationResplitsAtPause(t *testing.T) {
	// 8300ms of speech with one 300ms pause: too short to split at the
	// primary threshold, but the over-long chunk re-splits there at the
	// halved threshold instead of cutting mid-speech.
	tr := singleSpeaker(
		asr.Word{Text: "A1", StartMS: 0, EndMS: 2000},
		asr.Word{Text: "A2", StartMS: 2000, EndMS: 4000},
		asr.Word{Text: "B1", StartMS: 4300, EndMS: 6300},
		asr.Word{Text: "B2", StartMS: 6300, EndMS: 8300},
	)
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[0].EndMS != 4000 || got[1].StartMS != 4300 {
		t.Errorf("split = [..%d][%d..], want at the pause", got[0].EndMS, got[1].StartMS)
	}
}

func TestNormalizeReattachesPunctuation(t *testing.T) {
	tr := &asr.Transcript{Utterances: []asr.Utterance{{
		Speaker: "1",
		Text:    "你好，世界。",
		Words: []asr.Word{
			{Text: "你好", StartMS: 0, EndMS: 300},
			{Text: "世界", StartMS: 310, EndMS: 600},
		},
	}}}
	got := Normalize(tr, NormalizeOptions{})
	if len(got) != 1 {
		t.Fatalf("utterances = %d, want 1", len(got))
	}
	if got[0].Text != "你好，世界。" {
		t.Errorf("text = %q", got[0].Text)
	}
	if got[0].Words[0].Text != "你好，" || got[0].Words[1].Text != "世界。" {
		t.Errorf("words = %q, %q", got[0].Words[0].Text, got[0].Words[1].Text)
	}
}

func TestNormalizeMergesFragmentAfterMaxSplit(t *testing.T) {
	// The merge pass runs before the max-duration split, so the 500ms tail
	// the hard split leaves behind stays a separate utterance.
	var words []asr.Word
	for i := 0; i < 8; i++ {
		words = append(words, asr.Word{Text: fmt.Sprintf("w%d", i), StartMS: i * 1000, EndMS: (i + 1) * 1000})
	}
	words = append(words, asr.Word{Text: "tail", StartMS: 8000, EndMS: 8500})
	got := Normalize(singleSpeaker(words...), NormalizeOptions{})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	if got[1].Text != "tail" {
		t.Errorf("tail = %+v", got[1])
	}
}

func TestNormalizeGenderFromMajorityVote(t *testing.T) {
	// Speaker 1's per-utterance gender labels disagree; every normalized
	// utterance still carries the majority verdict.
	tr := &asr.Transcript{Utterances: []asr.Utterance{
		{Speaker: "1", Gender: "male", Words: []asr.Word{{Text: "A", StartMS: 0, EndMS: 400}}},
		{Speaker: "1", Gender: "male", Words: []asr.Word{{Text: "B", StartMS: 1000, EndMS: 1400}}},
		{Speaker: "1", Gender: "female", Words: []asr.Word{{Text: "C", StartMS: 2000, EndMS: 2400}}},
	}}
	got := Normalize(tr, NormalizeOptions{})
	for _, n := range got {
		if n.Gender != "male" {
			t.Errorf("utterance [%d,%d] gender = %q, want male", n.StartMS, n.EndMS, n.Gender)
		}
	}
}

func TestNormalizeTrailingCapExtendsIntoSilence(t *testing.T) {
	tr := singleSpeaker(
		asr.Word{Text: "A", StartMS: 0, EndMS: 400},
		asr.Word{Text: "B", StartMS: 1400, EndMS: 1800},
		asr.Word{Text: "C", StartMS: 1950, EndMS: 2400},
	)
	got := Normalize(tr, NormalizeOptions{TrailingCapMS: 350})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	// 1000ms of silence after the first utterance: extension hits the cap.
	if got[0].EndMS != 750 {
		t.Errorf("first ends at %d, want 750", got[0].EndMS)
	}
	// Silence after the last utterance is never claimed.
	if got[1].EndMS != 2400 {
		t.Errorf("last ends at %d, want 2400", got[1].EndMS)
	}
}

func TestNormalizeTrailingCapBoundedByGap(t *testing.T) {
	tr := &asr.Transcript{Utterances: []asr.Utterance{
		{Speaker: "1", Words: []asr.Word{{Text: "A", StartMS: 0, EndMS: 400}}},
		{Speaker: "2", Words: []asr.Word{{Text: "B", StartMS: 600, EndMS: 1000}}},
	}}
	got := Normalize(tr, NormalizeOptions{TrailingCapMS: 350})
	if len(got) != 2 {
		t.Fatalf("utterances = %d, want 2", len(got))
	}
	// Only 200ms of gap exists: neighbors may touch but never overlap.
	if got[0].EndMS != 600 {
		t.Errorf("first ends at %d, want 600", got[0].EndMS)
	}
}

func TestNormalizeEmptyTranscript(t *testing.T) {
	if got := Normalize(&asr.Transcript{}, NormalizeOptions{}); got != nil {
		t.Errorf("got %d utterances from empty transcript", len(got))
	}
}
