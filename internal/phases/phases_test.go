package phases

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"dubbin/internal/align"
	"dubbin/internal/config"
	"dubbin/internal/mt"
	"dubbin/internal/pipeline"
	"dubbin/internal/subtitle"
	"dubbin/internal/testsupport"
	"dubbin/internal/voice"
	"dubbin/internal/workspace"
)

func testEnv() *Env {
	return &Env{Config: config.Default()}
}

func TestAllMatchesDeclaredOrder(t *testing.T) {
	all := All(testEnv())
	names := Names()
	if len(all) != len(names) {
		t.Fatalf("All returned %d phases, Names %d", len(all), len(names))
	}
	for i, p := range all {
		if p.Name() != names[i] {
			t.Errorf("phase %d is %q, want %q", i, p.Name(), names[i])
		}
	}
}

func TestDeclaredKeysResolve(t *testing.T) {
	pseudo := map[string]bool{
		pipeline.KeyInputVideo:        true,
		pipeline.KeyShowSpeakerToRole: true,
		pipeline.KeyShowRoleCast:      true,
		pipeline.KeyShowGlossary:      true,
	}
	ws := testsupport.Workspace(t)
	for _, p := range All(testEnv()) {
		for _, key := range append(p.Requires(), p.Provides()...) {
			if pseudo[key] {
				continue
			}
			if _, err := ws.ArtifactPath(key); err != nil {
				t.Errorf("phase %s declares unresolvable key %s: %v", p.Name(), key, err)
			}
		}
	}
}

// Every artifact a phase requires must be provided by an earlier phase or
// exist outside the pipeline. This is the wiring the runner's invalidation
// chain depends on.
func TestRequiresAreSatisfiedUpstream(t *testing.T) {
	available := map[string]bool{
		pipeline.KeyInputVideo:        true,
		pipeline.KeyShowSpeakerToRole: true,
		pipeline.KeyShowRoleCast:      true,
		pipeline.KeyShowGlossary:      true,
	}
	for _, p := range All(testEnv()) {
		for _, key := range p.Requires() {
			if !available[key] {
				t.Errorf("phase %s requires %s before any phase provides it", p.Name(), key)
			}
		}
		for _, key := range p.Provides() {
			available[key] = true
		}
	}
}

func rawRecognition(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"audio_info": map[string]any{"duration": 10000},
		"result": map[string]any{
			"text": "你好，世界。",
			"utterances": []map[string]any{
				{
					"text":       "你好，世界。",
					"start_time": 0,
					"end_time":   800,
					"additions":  map[string]any{"speaker": "1", "gender": "female"},
					"words": []map[string]any{
						{"text": "你好", "start_time": 0, "end_time": 300},
						{"text": "世界", "start_time": 310, "end_time": 600},
					},
				},
				{
					"text":       "走吧。",
					"start_time": 2000,
					"end_time":   2600,
					"additions":  map[string]any{"speaker": "2", "gender": "male"},
					"words": []map[string]any{
						{"text": "走吧", "start_time": 2000, "end_time": 2500},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestSubtitlePhaseBuildsModelAndRegistersSpeakers(t *testing.T) {
	ws := testsupport.Workspace(t)
	testsupport.WriteArtifact(t, ws, workspace.KeyRecognitionRaw, rawRecognition(t))

	phase := &subtitlePhase{env: testEnv()}
	if err := phase.Run(context.Background(), ws); err != nil {
		t.Fatalf("Run: %v", err)
	}

	modelPath, _ := ws.ArtifactPath(workspace.KeySubtitleModel)
	model, err := subtitle.Load(modelPath)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	if len(model.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(model.Utterances))
	}
	if model.Audio.DurationMS != 10000 {
		t.Errorf("duration = %d", model.Audio.DurationMS)
	}
	if got := model.Utterances[0].Speaker.Gender; got != "female" {
		t.Errorf("first speaker gender = %q", got)
	}

	srtPath, _ := ws.ArtifactPath(workspace.KeyRenderZhSRT)
	srt, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "你好，世界。") {
		t.Errorf("srt missing source text: %s", srt)
	}

	registry, err := voice.LoadSpeakerToRole(ws.SpeakerToRolePath())
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	episode := registry.Episodes[ws.Episode]
	if len(episode) != 2 {
		t.Fatalf("registry entries = %d, want 2", len(episode))
	}
	for speaker, role := range episode {
		if role != "" {
			t.Errorf("speaker %s pre-assigned role %q", speaker, role)
		}
	}
}

type fakeTranslator struct {
	calls   int
	prompts []string
}

func (f *fakeTranslator) Translate(_ context.Context, _ string, userPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	return "translated", nil
}

func TestTranslatePhaseWritesRecords(t *testing.T) {
	ws := testsupport.Workspace(t)
	testsupport.WriteArtifact(t, ws, workspace.KeyRecognitionRaw, rawRecognition(t))
	if err := (&subtitlePhase{env: testEnv()}).Run(context.Background(), ws); err != nil {
		t.Fatal(err)
	}

	env := testEnv()
	translator := &fakeTranslator{}
	env.Translator = translator
	if err := (&translatePhase{env: env}).Run(context.Background(), ws); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if translator.calls != 2 {
		t.Fatalf("translator calls = %d, want 2", translator.calls)
	}

	outputPath, _ := ws.ArtifactPath(workspace.KeyMTOutput)
	outputs, err := mt.ReadOutputs(outputPath)
	if err != nil {
		t.Fatalf("read outputs: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(outputs))
	}
	for _, rec := range outputs {
		if rec.TextTarget != "translated" {
			t.Errorf("utterance %s target = %q", rec.UttID, rec.TextTarget)
		}
	}
}

func TestAlignPhaseBuildsDubModel(t *testing.T) {
	ws := testsupport.Workspace(t)
	testsupport.WriteArtifact(t, ws, workspace.KeyRecognitionRaw, rawRecognition(t))
	if err := (&subtitlePhase{env: testEnv()}).Run(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	env := testEnv()
	env.Translator = &fakeTranslator{}
	if err := (&translatePhase{env: env}).Run(context.Background(), ws); err != nil {
		t.Fatal(err)
	}

	if err := (&alignPhase{env: testEnv()}).Run(context.Background(), ws); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dubPath, _ := ws.ArtifactPath(workspace.KeyDubModel)
	dub, err := align.LoadDubModel(dubPath)
	if err != nil {
		t.Fatalf("load dub model: %v", err)
	}
	if len(dub.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(dub.Utterances))
	}
	for i, u := range dub.Utterances {
		if u.BudgetMS != u.EndMS-u.StartMS {
			t.Errorf("utterance %s budget %d != span", u.UttID, u.BudgetMS)
		}
		if i > 0 && u.StartMS < dub.Utterances[i-1].EndMS {
			t.Errorf("utterance %s overlaps previous", u.UttID)
		}
	}
	if dub.Utterances[0].Gender != "female" || dub.Utterances[1].Gender != "male" {
		t.Errorf("genders not carried: %q %q", dub.Utterances[0].Gender, dub.Utterances[1].Gender)
	}

	srtPath, _ := ws.ArtifactPath(workspace.KeyRenderEnSRT)
	srt, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "translated") {
		t.Errorf("en srt missing translation: %s", srt)
	}
}
