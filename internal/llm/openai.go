package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/edgard/groupmate/internal/config"
)

// OpenAI is a Completer for any OpenAI-compatible chat endpoint, including
// DashScope and DeepSeek.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	attempts    uint
	delay       time.Duration
	log         *slog.Logger
}

// NewOpenAI creates the client. It does not contact the endpoint.
func NewOpenAI(cfg config.LLMConfig, logger *slog.Logger) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		attempts:    max(cfg.MaxAttempts, 1),
		delay:       cfg.RetryDelay,
		log:         logger.With("component", "openai_client"),
	}
}

func (c *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: c.temperature,
	}

	var out string
	err := retry.Do(
		func() error {
			resp, err := c.client.CreateChatCompletion(ctx, req)
			if err != nil {
				if permanent(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Unrecoverable(ErrEmpty)
			}
			text, err := clean(resp.Choices[0].Message.Content)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			out = text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.WarnContext(ctx, "Chat completion failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// permanent reports client errors that retrying cannot fix.
func permanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 && reqErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}
