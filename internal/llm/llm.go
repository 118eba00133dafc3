// Package llm talks to chat-completion models. Callers build a list of
// Messages and get back plain text; the provider behind Completer is chosen
// by configuration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/resilience"
)

// Role is the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

var (
	// ErrEmpty is returned when the model answered with no text.
	ErrEmpty = errors.New("llm returned an empty completion")
	// ErrDisabled is returned by the completer used when no API key is set.
	ErrDisabled = errors.New("llm is not configured")
)

// Completer produces a completion for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// Disabled always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Complete(context.Context, []Message) (string, error) { return "", ErrDisabled }

// BuildMessages lays out a system prompt, prior channel history and the
// final user prompt. Every history entry is prefixed with its author's name;
// entries written by the bot become assistant turns.
func BuildMessages(system string, history []memory.HistoryEntry, prompt string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	for _, h := range history {
		role := RoleUser
		if h.UserID == memory.BotUserID {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: fmt.Sprintf("%s: %s", h.Username, h.Content)})
	}
	if prompt != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: prompt})
	}
	return msgs
}

// Ask is shorthand for a system prompt plus one user prompt.
func Ask(ctx context.Context, c Completer, system, prompt string) (string, error) {
	return c.Complete(ctx, BuildMessages(system, nil, prompt))
}

// New returns the configured provider wrapped in a circuit breaker and rate
// limiter. Without an API key it returns Disabled.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Completer, error) {
	log := logger.With("component", "llm")
	if cfg.APIKey == "" {
		log.Warn("No LLM API key configured, model-backed replies disabled")
		return Disabled{}, nil
	}

	var backend Completer
	switch cfg.Provider {
	case "gemini":
		g, err := NewGemini(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		backend = NewOpenAI(cfg, logger)
	}

	guard := resilience.NewGuard(resilience.Config{
		Name:          "llm",
		MaxFailures:   cfg.Breaker.MaxFailures,
		OpenTimeout:   cfg.Breaker.OpenTimeout,
		RatePerMinute: cfg.RatePerMinute,
		IsSuccessful:  countsAsHealthy,
		Logger:        logger,
	})
	log.Info("LLM client initialized", "provider", cfg.Provider, "model", cfg.Model)
	return NewGuarded(backend, guard), nil
}

// countsAsHealthy keeps empty answers and cancelled requests from tripping
// the breaker.
func countsAsHealthy(err error) bool {
	return err == nil || errors.Is(err, ErrEmpty) || errors.Is(err, context.Canceled)
}

// Guarded runs a Completer through a resilience.Guard.
type Guarded struct {
	next  Completer
	guard *resilience.Guard
}

// NewGuarded wraps next.
func NewGuarded(next Completer, guard *resilience.Guard) *Guarded {
	return &Guarded{next: next, guard: guard}
}

func (g *Guarded) Complete(ctx context.Context, messages []Message) (string, error) {
	var out string
	err := g.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Complete(ctx, messages)
		return err
	})
	return out, err
}

// clean trims a completion and maps blank output to ErrEmpty.
func clean(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}
