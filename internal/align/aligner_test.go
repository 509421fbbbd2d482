package align

import (
	"path/filepath"
	"testing"
	"unicode/utf8"

	"dubbin/internal/mt"
	"dubbin/internal/subtitle"
)

func testSubtitleModel() *subtitle.Model {
	return &subtitle.Model{
		Schema: subtitle.Schema{Name: subtitle.SchemaName, Version: subtitle.SchemaVersion},
		Audio:  subtitle.Audio{Lang: "zh", DurationMS: 10000},
		Utterances: []subtitle.Utterance{
			{UttID: "utt_0001", Speaker: subtitle.Speaker{ID: "1", Gender: "male", Emotion: "neutral"}, StartMS: 0, EndMS: 2000, Text: "你好。"},
			{UttID: "utt_0002", Speaker: subtitle.Speaker{ID: "2", Gender: "female"}, StartMS: 2100, EndMS: 4000, Text: "再见。"},
			{UttID: "utt_0003", Speaker: subtitle.Speaker{ID: "1", Gender: "male"}, StartMS: 5000, EndMS: 9950, Text: "好。"},
		},
	}
}

func testTranslations() map[string]mt.OutputRecord {
	return map[string]mt.OutputRecord{
		"utt_0001": {UttID: "utt_0001", TextSource: "你好。", TextTarget: "Hello there."},
		"utt_0002": {UttID: "utt_0002", TextSource: "再见。", TextTarget: "Goodbye."},
		"utt_0003": {UttID: "utt_0003", TextSource: "好。", TextTarget: "Fine."},
	}
}

func TestBuildExtendsWithinLimits(t *testing.T) {
	m, err := Build(testSubtitleModel(), testTranslations(), Options{MaxExtendMS: 200, SafetyGapMS: 60, MaxRate: 1.3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// utt_0001 would extend to 2200, but the next start 2100 minus the
	// safety gap caps it at 2040.
	if got := m.Utterances[0].EndMS; got != 2040 {
		t.Errorf("utt_0001 end = %d, want 2040", got)
	}
	// utt_0002 has room for the full extension.
	if got := m.Utterances[1].EndMS; got != 4200 {
		t.Errorf("utt_0002 end = %d, want 4200", got)
	}
	// utt_0003 is bounded by the audio duration.
	if got := m.Utterances[2].EndMS; got != 10000 {
		t.Errorf("utt_0003 end = %d, want 10000", got)
	}

	for i, u := range m.Utterances {
		if u.BudgetMS != u.EndMS-u.StartMS {
			t.Errorf("utterance %d budget %d != span", i, u.BudgetMS)
		}
		if i > 0 && u.StartMS < m.Utterances[i-1].EndMS {
			t.Errorf("utterance %d overlaps previous", i)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuildCopiesSpeakerMetadata(t *testing.T) {
	m, err := Build(testSubtitleModel(), testTranslations(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	u := m.Utterances[0]
	if u.SpeakerID != "1" || u.Gender != "male" || u.Emotion != "neutral" {
		t.Errorf("metadata = %+v", u)
	}
	if u.TextSource != "你好。" || u.TextTarget != "Hello there." {
		t.Errorf("texts = %q / %q", u.TextSource, u.TextTarget)
	}
	if u.TTSPolicy.MaxRate != 1.3 {
		t.Errorf("max_rate = %v", u.TTSPolicy.MaxRate)
	}
}

func TestBuildMissingTranslation(t *testing.T) {
	tr := testTranslations()
	delete(tr, "utt_0002")
	if _, err := Build(testSubtitleModel(), tr, Options{}); err == nil {
		t.Error("expected error for missing translation")
	}
}

func TestDubModelSaveLoadRoundTrip(t *testing.T) {
	m, err := Build(testSubtitleModel(), testTranslations(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dub_model.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadDubModel(path)
	if err != nil {
		t.Fatalf("LoadDubModel: %v", err)
	}
	if len(loaded.Utterances) != 3 || loaded.AudioDurationMS != 10000 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestValidateRejectsBadBudget(t *testing.T) {
	m := &DubModel{Utterances: []DubUtterance{{
		UttID: "utt_0001", StartMS: 0, EndMS: 1000, BudgetMS: 900,
		TTSPolicy: TTSPolicy{MaxRate: 1.3},
	}}}
	if err := m.Validate(); err == nil {
		t.Error("expected budget mismatch error")
	}
}

func TestValidateRejectsBadRate(t *testing.T) {
	m := &DubModel{Utterances: []DubUtterance{{
		UttID: "utt_0001", StartMS: 0, EndMS: 1000, BudgetMS: 1000,
		TTSPolicy: TTSPolicy{MaxRate: 2.0},
	}}}
	if err := m.Validate(); err == nil {
		t.Error("expected max_rate error")
	}
}

func TestValidateRejectsCrossSpeakerOverlap(t *testing.T) {
	// The timeline invariant holds between every adjacent pair, not just
	// same-speaker ones.
	m := &DubModel{Utterances: []DubUtterance{
		{UttID: "utt_0001", StartMS: 0, EndMS: 2000, BudgetMS: 2000, SpeakerID: "spk_1",
			TTSPolicy: TTSPolicy{MaxRate: 1.3}},
		{UttID: "utt_0002", StartMS: 1500, EndMS: 3000, BudgetMS: 1500, SpeakerID: "spk_2",
			TTSPolicy: TTSPolicy{MaxRate: 1.3}},
	}}
	if err := m.Validate(); err == nil {
		t.Error("expected overlap error across speakers")
	}
}

func TestBuildCuesSplitsLongText(t *testing.T) {
	m := &DubModel{Utterances: []DubUtterance{{
		UttID: "utt_0001", StartMS: 1000, EndMS: 5000, BudgetMS: 4000,
		TextTarget: "The quick brown fox jumps over the lazy dog near the quiet river bank",
		TTSPolicy:  TTSPolicy{MaxRate: 1.3},
	}}}
	a := BuildCues(m, "en", 30)
	if len(a.Cues) < 2 {
		t.Fatalf("cues = %d, want several", len(a.Cues))
	}
	for i, c := range a.Cues {
		if n := utf8.RuneCountInString(c.Text); n > 30 {
			t.Errorf("cue %d has %d chars: %q", i, n, c.Text)
		}
		if c.StartMS < 1000 || c.EndMS > 5000 {
			t.Errorf("cue %d [%d,%d] escapes utterance span", i, c.StartMS, c.EndMS)
		}
		if i > 0 && c.StartMS != a.Cues[i-1].EndMS {
			t.Errorf("cue %d not contiguous", i)
		}
		// Word-boundary splits: no fragment starts or ends mid-word.
		if c.Text[0] == ' ' || c.Text[len(c.Text)-1] == ' ' {
			t.Errorf("cue %d has ragged spacing: %q", i, c.Text)
		}
	}
	last := a.Cues[len(a.Cues)-1]
	if last.EndMS != 5000 {
		t.Errorf("last cue ends at %d, want 5000", last.EndMS)
	}
}

func TestBuildCuesShortTextSingleCue(t *testing.T) {
	m := &DubModel{Utterances: []DubUtterance{{
		UttID: "utt_0001", StartMS: 0, EndMS: 2000, BudgetMS: 2000,
		TextTarget: "Hello.", TTSPolicy: TTSPolicy{MaxRate: 1.3},
	}}}
	a := BuildCues(m, "en", 42)
	if len(a.Cues) != 1 {
		t.Fatalf("cues = %d, want 1", len(a.Cues))
	}
	c := a.Cues[0]
	if c.StartMS != 0 || c.EndMS != 2000 || c.Text != "Hello." {
		t.Errorf("cue = %+v", c)
	}
}

func TestSplitTextNoSpaces(t *testing.T) {
	got := splitText("abcdefghij", 4)
	want := []string{"abcd", "efgh", "ij"}
	if len(got) != len(want) {
		t.Fatalf("fragments = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d = %q, want %q", i, got[i], want[i])
		}
	}
}
