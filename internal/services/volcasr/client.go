package volcasr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubbin/internal/services"
)

const (
	defaultBaseURL     = "https://openspeech.bytedance.com"
	submitPath         = "/api/v3/auc/bigmodel/submit"
	queryPath          = "/api/v3/auc/bigmodel/query"
	defaultResourceID  = "volc.seedasr.auc"
	defaultHTTPTimeout = 60 * time.Second

	defaultPollInitial  = 2 * time.Second
	defaultPollMax      = 30 * time.Second
	defaultPollDeadline = 15 * time.Minute

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Provider status codes arrive in the X-Api-Status-Code response header;
// the body may be empty. 20000000 is success, 20000001/2/3 mean the task is
// still queued or running.
const (
	statusHeader  = "X-Api-Status-Code"
	messageHeader = "X-Api-Message"

	codeSuccess = "20000000"
)

var pendingCodes = map[string]bool{
	"20000001": true,
	"20000002": true,
	"20000003": true,
}

// Config carries the settings for the recognition service.
type Config struct {
	AppID       string
	AccessToken string
	BaseURL     string
	ResourceID  string
	// TimeoutSeconds bounds a single HTTP exchange, not the whole job.
	TimeoutSeconds int
}

// Client submits recognition jobs and polls for their results.
type Client struct {
	cfg        Config
	httpClient *http.Client

	pollInitial  time.Duration
	pollMax      time.Duration
	pollDeadline time.Duration

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration

	sleeper      func(context.Context, time.Duration) error
	newRequestID func() string
}

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

// WithPollBackoff sets the initial and maximum delay between status polls.
func WithPollBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.pollInitial = initial
		}
		if max > 0 {
			c.pollMax = max
		}
	}
}

// WithPollDeadline bounds the total time spent waiting for a job.
func WithPollDeadline(deadline time.Duration) Option {
	return func(c *Client) {
		if deadline > 0 {
			c.pollDeadline = deadline
		}
	}
}

// WithRetry overrides the per-call attempt count and backoff delays.
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

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithRequestIDFunc overrides request id generation (useful for tests).
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// NewClient constructs a recognition client.
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
		pollInitial:      defaultPollInitial,
		pollMax:          defaultPollMax,
		pollDeadline:     defaultPollDeadline,
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

// Request describes one recognition job.
type Request struct {
	// AudioURL must be fetchable by the provider.
	AudioURL string
	// Format of the audio behind the URL (wav, mp3, ...).
	Format string
	// Language code, e.g. zh-CN.
	Language string
	// Hotwords bias recognition toward expected names and terms.
	Hotwords []string
}

// Wire shapes. The provider ignores absent optional fields, so everything
// non-essential is omitempty.
type submitBody struct {
	User    userInfo      `json:"user"`
	Audio   audioConfig   `json:"audio"`
	Request requestConfig `json:"request"`
}

type userInfo struct {
	UID string `json:"uid"`
}

type audioConfig struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Language string `json:"language,omitempty"`
	Rate     int    `json:"rate"`
	Bits     int    `json:"bits"`
	Channel  int    `json:"channel"`
}

type requestConfig struct {
	ModelName              string        `json:"model_name"`
	EnableITN              bool          `json:"enable_itn"`
	EnablePunc             bool          `json:"enable_punc"`
	EnableSpeakerInfo      bool          `json:"enable_speaker_info"`
	EnableGenderDetection  bool          `json:"enable_gender_detection"`
	EnableEmotionDetection bool          `json:"enable_emotion_detection"`
	ShowUtterances         bool          `json:"show_utterances"`
	VADSegment             bool          `json:"vad_segment"`
	EndWindowSize          int           `json:"end_window_size,omitempty"`
	Corpus                 *corpusConfig `json:"corpus,omitempty"`
}

type corpusConfig struct {
	Context string `json:"context,omitempty"`
}

func buildSubmitBody(appID string, req Request) submitBody {
	body := submitBody{
		User: userInfo{UID: appID},
		Audio: audioConfig{
			URL:      req.AudioURL,
			Format:   req.Format,
			Language: req.Language,
			Rate:     16000,
			Bits:     16,
			Channel:  1,
		},
		Request: requestConfig{
			ModelName:              "bigmodel",
			EnableITN:              true,
			EnablePunc:             true,
			EnableSpeakerInfo:      true,
			EnableGenderDetection:  true,
			EnableEmotionDetection: true,
			ShowUtterances:         true,
			VADSegment:             true,
			EndWindowSize:          800,
		},
	}
	if len(req.Hotwords) > 0 {
		words := make([]map[string]string, 0, len(req.Hotwords))
		for _, w := range req.Hotwords {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, map[string]string{"word": w})
			}
		}
		if len(words) > 0 {
			ctx, _ := json.Marshal(map[string]any{"hotwords": words})
			body.Request.Corpus = &corpusConfig{Context: string(ctx)}
		}
	}
	return body
}

// Recognize submits the job and polls until the provider returns a final
// result, using bounded exponential backoff between polls and a total
// deadline. The returned bytes are the provider's response verbatim, to be
// persisted as the raw recognition artifact.
func (c *Client) Recognize(ctx context.Context, req Request) ([]byte, error) {
	requestID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.pollDeadline)
	delay := c.pollInitial
	for {
		if err := c.sleeper(ctx, delay); err != nil {
			return nil, services.Wrap(services.ErrTransient, "", "recognize poll", "cancelled while waiting", err)
		}
		raw, done, err := c.Query(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if done {
			return raw, nil
		}
		if time.Now().After(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "", "recognize poll",
				fmt.Sprintf("job %s not finished after %s", requestID, c.pollDeadline), nil)
		}
		delay *= 2
		if delay > c.pollMax {
			delay = c.pollMax
		}
	}
}

// Submit enqueues a recognition job and returns the request id used to poll
// it. The provider reports status in response headers; the body may be
// empty. Transient failures are retried with exponential backoff, each
// attempt under a fresh request id.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", services.Wrap(services.ErrValidation, "", "recognize submit", "audio url required", nil)
	}
	payload, err := json.Marshal(buildSubmitBody(c.cfg.AppID, req))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "recognize submit", "encode request", err)
	}

	var requestID string
	err = c.retryTransient(ctx, "recognize submit", func() error {
		requestID = c.newRequestID()
		return c.submitOnce(ctx, requestID, payload)
	})
	if err != nil {
		return "", err
	}
	return requestID, nil
}

func (c *Client) submitOnce(ctx context.Context, requestID string, payload []byte) error {
	resp, body, err := c.post(ctx, submitPath, requestID, payload)
	if err != nil {
		return err
	}
	if err := classifyHTTP("recognize submit", resp.StatusCode, body); err != nil {
		return err
	}
	status := resp.Header.Get(statusHeader)
	if status == "" {
		return services.Wrap(services.ErrPermanent, "", "recognize submit",
			fmt.Sprintf("no %s header in response", statusHeader), nil)
	}
	if status != codeSuccess && !pendingCodes[status] {
		return services.Wrap(services.ErrPermanent, "", "recognize submit",
			fmt.Sprintf("provider status %s: %s", status, resp.Header.Get(messageHeader)), nil)
	}
	return nil
}

// Query fetches the current state of a submitted job. done is true when the
// provider reports completion and raw holds the final payload. Transient
// failures are retried with exponential backoff before the poll is given up
// on.
func (c *Client) Query(ctx context.Context, requestID string) (raw []byte, done bool, err error) {
	err = c.retryTransient(ctx, "recognize query", func() error {
		raw, done, err = c.queryOnce(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return raw, done, nil
}

func (c *Client) queryOnce(ctx context.Context, requestID string) ([]byte, bool, error) {
	resp, body, err := c.post(ctx, queryPath, requestID, []byte("{}"))
	if err != nil {
		return nil, false, err
	}
	if err := classifyHTTP("recognize query", resp.StatusCode, body); err != nil {
		return nil, false, err
	}
	status := resp.Header.Get(statusHeader)
	switch {
	case status == codeSuccess:
		return body, true, nil
	case pendingCodes[status]:
		return nil, false, nil
	default:
		return nil, false, services.Wrap(services.ErrPermanent, "", "recognize query",
			fmt.Sprintf("provider status %s: %s", status, resp.Header.Get(messageHeader)), nil)
	}
}

// retryTransient runs fn up to retryMaxAttempts times with exponential
// backoff between attempts. Only transient errors are retried.
func (c *Client) retryTransient(ctx context.Context, op string, fn func() error) error {
	delay := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == c.retryMaxAttempts {
			return err
		}
		if sleepErr := c.sleeper(ctx, delay); sleepErr != nil {
			return services.Wrap(services.ErrTransient, "", op, "cancelled during retry wait", sleepErr)
		}
		delay *= 2
		if delay > c.retryMaxDelay {
			delay = c.retryMaxDelay
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, path, requestID string, payload []byte) (*http.Response, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "", "recognize request", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-App-Key", c.cfg.AppID)
	httpReq.Header.Set("X-Api-Access-Key", c.cfg.AccessToken)
	httpReq.Header.Set("X-Api-Resource-Id", c.cfg.ResourceID)
	httpReq.Header.Set("X-Api-Request-Id", requestID)
	httpReq.Header.Set("X-Api-Sequence", "-1")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "", "recognize request", "http call failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "", "recognize request", "read response", err)
	}
	return resp, body, nil
}

// classifyHTTP maps an HTTP status to the error taxonomy: 5xx and 429 are
// transient, other 4xx are permanent.
func classifyHTTP(op string, status int, body []byte) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, "", op,
			fmt.Sprintf("http %d: %s", status, snippet(body)), nil)
	default:
		return services.Wrap(services.ErrPermanent, "", op,
			fmt.Sprintf("http %d: %s", status, snippet(body)), nil)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
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
