package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"google.golang.org/genai"

	"github.com/edgard/groupmate/internal/config"
)

// Gemini is a Completer backed by Google's Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	attempts    uint
	delay       time.Duration
	log         *slog.Logger
}

// NewGemini creates the genai client.
func NewGemini(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Gemini, error) {
	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:      gi,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		attempts:    max(cfg.MaxAttempts, 1),
		delay:       cfg.RetryDelay,
		log:         logger.With("component", "gemini_client"),
	}, nil
}

func (c *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	system, contents := toGenaiContents(messages)
	temperature := c.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	var out string
	err := retry.Do(
		func() error {
			resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
			if err != nil {
				var apiErr *genai.APIError
				if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			text, err := clean(resp.Text())
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
			c.log.WarnContext(ctx, "Gemini call failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

// toGenaiContents folds system messages into one instruction and maps the
// rest to user and model turns.
func toGenaiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
