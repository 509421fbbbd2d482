package mix

import (
	"strings"
	"testing"

	"dubbin/internal/align"
	"dubbin/internal/tts"
)

func testDubModel() *align.DubModel {
	return &align.DubModel{
		AudioDurationMS: 62500,
		Utterances: []align.DubUtterance{
			{UttID: "utt_0001", StartMS: 1000, EndMS: 3000, BudgetMS: 2000, TTSPolicy: align.TTSPolicy{MaxRate: 1.3}},
			{UttID: "utt_0002", StartMS: 4000, EndMS: 6000, BudgetMS: 2000, TTSPolicy: align.TTSPolicy{MaxRate: 1.3}},
		},
	}
}

func testIndex(durations map[string]int) *tts.Index {
	x := &tts.Index{Segments: map[string]tts.Segment{}}
	for id, d := range durations {
		x.Segments[id] = tts.Segment{
			UttID: id, WavPath: "tts/segments/" + id + ".wav",
			DurationMS: d, Rate: 1.0, Status: tts.StatusOK,
		}
	}
	return x
}

func TestBuildPlanPlacesAtAbsoluteStarts(t *testing.T) {
	plan, err := BuildPlan(testDubModel(), testIndex(map[string]int{"utt_0001": 1800, "utt_0002": 1900}))
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.DurationMS != 62500 {
		t.Errorf("duration = %d", plan.DurationMS)
	}
	if plan.Placements[0].DelayMS != 1000 || plan.Placements[1].DelayMS != 4000 {
		t.Errorf("delays = %d, %d", plan.Placements[0].DelayMS, plan.Placements[1].DelayMS)
	}
	for _, p := range plan.Placements {
		if p.LimitMS != 0 {
			t.Errorf("%s unexpectedly truncated to %d", p.UttID, p.LimitMS)
		}
	}
}

func TestBuildPlanTruncatesOverflowToGrace(t *testing.T) {
	// Segment runs 2500ms against a 2000ms budget: clipped at budget+200.
	plan, err := BuildPlan(testDubModel(), testIndex(map[string]int{"utt_0001": 2500, "utt_0002": 1000}))
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Placements[0].LimitMS; got != 2200 {
		t.Errorf("limit = %d, want 2200", got)
	}
	// The placement window invariant: never past start+budget+grace.
	if end := plan.Placements[0].EndMS(2500); end != 1000+2200 {
		t.Errorf("end = %d, want 3200", end)
	}
}

func TestBuildPlanResolvesResidualOverlap(t *testing.T) {
	dub := &align.DubModel{
		AudioDurationMS: 10000,
		Utterances: []align.DubUtterance{
			{UttID: "utt_0001", StartMS: 1000, EndMS: 4000, BudgetMS: 3000, TTSPolicy: align.TTSPolicy{MaxRate: 1.3}},
			{UttID: "utt_0002", StartMS: 4100, EndMS: 6000, BudgetMS: 1900, TTSPolicy: align.TTSPolicy{MaxRate: 1.3}},
		},
	}
	// First segment plays 3200ms from 1000, ending at 4200, past the next
	// start at 4100: the earlier segment is truncated there.
	plan, err := BuildPlan(dub, testIndex(map[string]int{"utt_0001": 3200, "utt_0002": 1500}))
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Placements[0].LimitMS; got != 3100 {
		t.Errorf("limit = %d, want 3100", got)
	}
	if end := plan.Placements[0].EndMS(3200); end != 4100 {
		t.Errorf("end = %d, want 4100", end)
	}
}

func TestBuildPlanMissingSegment(t *testing.T) {
	if _, err := BuildPlan(testDubModel(), testIndex(map[string]int{"utt_0001": 1000})); err == nil {
		t.Error("expected error for missing segment")
	}
}

func TestBuildPlanKeepsFailedSilence(t *testing.T) {
	index := testIndex(map[string]int{"utt_0001": 2000})
	index.Segments["utt_0002"] = tts.Segment{
		UttID: "utt_0002", WavPath: "tts/segments/utt_0002.wav",
		DurationMS: 2000, Status: tts.StatusFailed, Error: "timeout",
	}
	plan, err := BuildPlan(testDubModel(), index)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Placements[1].Failed {
		t.Error("failed segment not marked in plan")
	}
}

func TestBuildFilterGraphShape(t *testing.T) {
	plan, err := BuildPlan(testDubModel(), testIndex(map[string]int{"utt_0001": 2500, "utt_0002": 1000}))
	if err != nil {
		t.Fatal(err)
	}
	graph := BuildFilterGraph(plan, DefaultSettings())

	for _, want := range []string{
		"atrim=end=2.200",
		"adelay=1000:all=1",
		"adelay=4000:all=1",
		"amix=inputs=2:normalize=0:duration=longest",
		"sidechaincompress=threshold=0.05:ratio=10:attack=20:release=400",
		"apad,atrim=end=62.500",
		"loudnorm=I=-16:TP=-1.5:LRA=11",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q:\n%s", want, graph)
		}
	}
	// Speech never re-normalized by amix.
	if strings.Contains(graph, "normalize=1") {
		t.Error("graph re-normalizes inputs")
	}
}

func TestBuildFilterGraphKeepsVocals(t *testing.T) {
	plan, err := BuildPlan(testDubModel(), testIndex(map[string]int{"utt_0001": 1800, "utt_0002": 1900}))
	if err != nil {
		t.Fatal(err)
	}
	s := DefaultSettings()
	s.KeepVocals = true

	graph := BuildFilterGraph(plan, s)
	// Vocal stem rides after the two segment inputs.
	if !strings.Contains(graph, "[3:a]volume=0.15[voc]") {
		t.Errorf("graph missing vocal stem input:\n%s", graph)
	}
	if !strings.Contains(graph, "[acc][voc]amix=inputs=2:normalize=0[bg]") {
		t.Errorf("graph missing background blend:\n%s", graph)
	}

	muted := BuildFilterGraph(plan, DefaultSettings())
	if strings.Contains(muted, "[voc]") {
		t.Error("muted graph still references the vocal stem")
	}
}
