package responder

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/edgard/groupmate/internal/llm"
)

// Status classifies the outcome of one generation tier.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result is the outcome of one tier.
type Result struct {
	Text   string
	Status Status
	Err    error
}

// OK wraps text, classifying blank text as empty.
func OK(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Status: StatusEmpty}
	}
	return Result{Text: text, Status: StatusOK}
}

// Failed wraps err.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// FromLLM classifies a completion: ErrEmpty and blank text are empty, any
// other error is a failure.
func FromLLM(text string, err error) Result {
	if errors.Is(err, llm.ErrEmpty) {
		return Result{Status: StatusEmpty, Err: err}
	}
	if err != nil {
		return Failed(err)
	}
	return OK(text)
}

// Tier is one way of producing a reply.
type Tier struct {
	Name string
	Run  func(ctx context.Context) Result
}

// Fixed is a tier that always yields text.
func Fixed(name, text string) Tier {
	return Tier{Name: name, Run: func(context.Context) Result { return OK(text) }}
}

// FirstSuccess runs tiers in order and returns the text of the first that
// succeeds. Empty and failed tiers are logged and skipped. It reports false
// when every tier fell through.
func FirstSuccess(ctx context.Context, log *slog.Logger, tiers ...Tier) (string, bool) {
	for _, t := range tiers {
		r := t.Run(ctx)
		if r.Status == StatusOK {
			return r.Text, true
		}
		if r.Status == StatusFailed {
			log.WarnContext(ctx, "Generation tier failed, falling back", "tier", t.Name, "error", r.Err)
		} else {
			log.DebugContext(ctx, "Generation tier was empty, falling back", "tier", t.Name)
		}
	}
	return "", false
}
