// Package translate wraps the chat-completion API used to translate
// utterances. The prompt construction lives in internal/mt; this package
// only moves strings across the wire.
package translate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"dubbin/internal/services"
)

// Config carries the settings for the translation service.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int
	// MaxAttempts is the total attempt count for transient failures; the
	// SDK retries internally with backoff.
	MaxAttempts int
}

// Client issues one chat completion per utterance.
type Client struct {
	client oai.Client
	cfg    Config
}

// NewClient constructs a translation client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "translate", "api key required", nil)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "translate", "model required", nil)
	}
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxAttempts > 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.MaxAttempts-1))
	}
	return &Client{client: oai.NewClient(reqOpts...), cfg: cfg}, nil
}

// Translate sends one system+user prompt pair and returns the model's
// text. The caller builds both prompts; the result is trimmed but otherwise
// untouched.
func (c *Client) Translate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", services.Wrap(services.ErrValidation, "", "translate", "empty prompt", nil)
	}
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt),
		},
	}
	if c.cfg.Temperature != 0 {
		params.Temperature = param.NewOpt(c.cfg.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "", "translate", "empty choices in response", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", services.Wrap(services.ErrTransient, "", "translate", "model returned no content", nil)
	}
	return content, nil
}

// classify maps SDK errors onto the error taxonomy. The SDK has already
// exhausted its retries by the time an error surfaces, so rate limits and
// server errors are transient only for the phase-level retry.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return services.Wrap(services.ErrTransient, "", "translate", "request failed", err)
		}
		return services.Wrap(services.ErrPermanent, "", "translate", "request rejected", err)
	}
	return services.Wrap(services.ErrTransient, "", "translate", "request failed", err)
}
