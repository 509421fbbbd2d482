package volctts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubbin/internal/services"
	"dubbin/internal/tts"
)

const (
	defaultBaseURL     = "https://openspeech.bytedance.com"
	synthesisPath      = "/api/v3/tts/unidirectional"
	defaultResourceID  = "seed-tts-1.0"
	defaultHTTPTimeout = 60 * time.Second

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second

	// codeDone is the provider's end-of-stream marker.
	codeDone = 20000000
)

// Config carries the settings for the synthesis service.
type Config struct {
	AppID       string
	AccessToken string
	BaseURL     string
	ResourceID  string
	// TimeoutSeconds bounds a single synthesis call.
	TimeoutSeconds int
}

// Client calls the synthesis API. It satisfies tts.SpeechClient.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(context.Context, time.Duration) error
	newRequestID     func() string
}

var _ tts.SpeechClient = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the attempt count and backoff delays.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryMaxAttempts = attempts
		}
		if baseDelay > 0 {
			c.retryBaseDelay = baseDelay
		}
		if maxDelay > 0 {
			c.retryMaxDelay = maxDelay
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.ResourceID) == "" {
		cfg.ResourceID = defaultResourceID
	}
	c := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleeper:          sleepContext,
		newRequestID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire shapes.
type synthesisBody struct {
	User      userInfo  `json:"user"`
	ReqParams reqParams `json:"req_params"`
}

type userInfo struct {
	UID string `json:"uid"`
}

type reqParams struct {
	Text        string      `json:"text"`
	Speaker     string      `json:"speaker"`
	AudioParams audioParams `json:"audio_params"`
}

type audioParams struct {
	Format       string `json:"format"`
	SampleRate   int    `json:"sample_rate"`
	Emotion      string `json:"emotion,omitempty"`
	EmotionScale int    `json:"emotion_scale,omitempty"`
}

// chunk is one line of the provider's streaming response. Audio arrives
// base64-encoded in data; code 20000000 marks the end of the stream.
type chunk struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Synthesize renders one utterance and returns the raw audio bytes in the
// requested format. Transient failures are retried with exponential
// backoff.
func (c *Client) Synthesize(ctx context.Context, req tts.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "synthesize", "text required", nil)
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "synthesize", "voice id required", nil)
	}

	delay := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		audio, err := c.synthesizeOnce(ctx, req)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == c.retryMaxAttempts {
			return nil, err
		}
		if sleepErr := c.sleeper(ctx, delay); sleepErr != nil {
			return nil, services.Wrap(services.ErrTransient, "", "synthesize", "cancelled during retry wait", sleepErr)
		}
		delay *= 2
		if delay > c.retryMaxDelay {
			delay = c.retryMaxDelay
		}
	}
	return nil, lastErr
}

func (c *Client) synthesizeOnce(ctx context.Context, req tts.SpeechRequest) ([]byte, error) {
	body := synthesisBody{
		User: userInfo{UID: c.cfg.AppID},
		ReqParams: reqParams{
			Text:    req.Text,
			Speaker: req.VoiceID,
			AudioParams: audioParams{
				Format:     req.Format,
				SampleRate: req.SampleRate,
			},
		},
	}
	if req.Emotion != "" {
		body.ReqParams.AudioParams.Emotion = req.Emotion
		body.ReqParams.AudioParams.EmotionScale = 4
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "synthesize", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+synthesisPath, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "synthesize", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-App-Id", c.cfg.AppID)
	httpReq.Header.Set("X-Api-Access-Key", c.cfg.AccessToken)
	httpReq.Header.Set("X-Api-Resource-Id", c.cfg.ResourceID)
	httpReq.Header.Set("X-Api-Request-Id", c.newRequestID())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "synthesize", "http call failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "", "synthesize",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, services.Wrap(services.ErrPermanent, "", "synthesize",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	// The response is one JSON object per line; audio chunks accumulate
	// until the end marker.
	var audio bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ch chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			return nil, services.Wrap(services.ErrTransient, "", "synthesize", "parse response chunk", err)
		}
		if ch.Code == codeDone {
			break
		}
		if ch.Code != 0 {
			return nil, services.Wrap(services.ErrPermanent, "", "synthesize",
				fmt.Sprintf("provider code %d: %s", ch.Code, ch.Message), nil)
		}
		if ch.Data == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(ch.Data)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "", "synthesize", "decode audio chunk", err)
		}
		audio.Write(decoded)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "synthesize", "read response stream", err)
	}
	if audio.Len() == 0 {
		return nil, services.Wrap(services.ErrTransient, "", "synthesize", "provider returned no audio", nil)
	}
	return audio.Bytes(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
