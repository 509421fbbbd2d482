package volctts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dubbin/internal/services"
	"dubbin/internal/tts"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		AppID:       "app",
		AccessToken: "token",
		BaseURL:     server.URL,
	}, append([]Option{WithSleeper(noSleep)}, opts...)...)
}

func chunkLine(t *testing.T, code int, data []byte) string {
	t.Helper()
	payload := map[string]any{"code": code}
	if data != nil {
		payload["data"] = base64.StdEncoding.EncodeToString(data)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return string(encoded) + "\n"
}

func TestSynthesizeReassemblesChunks(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Id") != "app" {
			t.Errorf("missing app id header")
		}
		var body synthesisBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.ReqParams.Speaker != "voice_a" {
			t.Errorf("speaker = %q", body.ReqParams.Speaker)
		}
		fmt.Fprint(w, chunkLine(t, 0, []byte("abc")))
		fmt.Fprint(w, chunkLine(t, 0, []byte("def")))
		fmt.Fprint(w, chunkLine(t, codeDone, nil))
	})
	client := newTestClient(t, handler)

	audio, err := client.Synthesize(context.Background(), tts.SpeechRequest{
		Text: "hello", VoiceID: "voice_a", Format: "pcm", SampleRate: 24000,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "abcdef" {
		t.Fatalf("audio = %q, want %q", audio, "abcdef")
	}
}

func TestSynthesizeRetriesTransient(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, chunkLine(t, 0, []byte("pcm")))
		fmt.Fprint(w, chunkLine(t, codeDone, nil))
	})
	client := newTestClient(t, handler)

	audio, err := client.Synthesize(context.Background(), tts.SpeechRequest{
		Text: "hi", VoiceID: "voice_a", Format: "pcm", SampleRate: 24000,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "pcm" || calls != 2 {
		t.Fatalf("audio=%q calls=%d", audio, calls)
	}
}

func TestSynthesizePermanentNotRetried(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})
	client := newTestClient(t, handler)

	_, err := client.Synthesize(context.Background(), tts.SpeechRequest{
		Text: "hi", VoiceID: "voice_a", Format: "pcm", SampleRate: 24000,
	})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"code":45000001,"message":"invalid voice"}`)
	})
	client := newTestClient(t, handler)

	_, err := client.Synthesize(context.Background(), tts.SpeechRequest{
		Text: "hi", VoiceID: "voice_a", Format: "pcm", SampleRate: 24000,
	})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := NewClient(Config{AppID: "app", AccessToken: "token"})
	if _, err := client.Synthesize(context.Background(), tts.SpeechRequest{VoiceID: "v"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), tts.SpeechRequest{Text: "hi"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty voice, got %v", err)
	}
}
