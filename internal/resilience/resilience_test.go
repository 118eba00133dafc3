package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgard/groupmate/internal/resilience"
)

var errBoom = errors.New("boom")

func TestGuardOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	g := resilience.NewGuard(resilience.Config{Name: "llm", MaxFailures: 2, OpenTimeout: time.Hour})
	ctx := context.Background()

	calls := 0
	fail := func(context.Context) error { calls++; return errBoom }

	for i := 0; i < 2; i++ {
		if err := g.Do(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}
	if err := g.Do(ctx, fail); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want open circuit", err)
	}
	if calls != 2 {
		t.Errorf("operation ran %d times, want 2", calls)
	}
	if g.State() != "open" {
		t.Errorf("state = %q", g.State())
	}
}

func TestGuardIgnoresSuccessfulErrors(t *testing.T) {
	t.Parallel()
	errEmpty := errors.New("empty")
	g := resilience.NewGuard(resilience.Config{
		Name:         "llm",
		MaxFailures:  1,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errEmpty) },
	})

	for i := 0; i < 3; i++ {
		if err := g.Do(context.Background(), func(context.Context) error { return errEmpty }); !errors.Is(err, errEmpty) {
			t.Fatalf("err = %v, want the operation's own error", err)
		}
	}
	if g.State() != "closed" {
		t.Errorf("state = %q, want closed", g.State())
	}
}

func TestGuardDisabled(t *testing.T) {
	t.Parallel()
	g := resilience.NewGuard(resilience.Config{Name: "search"})
	for i := 0; i < 10; i++ {
		_ = g.Do(context.Background(), func(context.Context) error { return errBoom })
	}
	if err := g.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("disabled guard returned %v", err)
	}
	if g.State() != "disabled" {
		t.Errorf("state = %q", g.State())
	}
}

func TestGuardRateLimitHonoursContext(t *testing.T) {
	t.Parallel()
	g := resilience.NewGuard(resilience.Config{Name: "llm", RatePerMinute: 1})
	ok := func(context.Context) error { return nil }

	if err := g.Do(context.Background(), ok); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Do(ctx, ok); !errors.Is(err, resilience.ErrRateLimited) {
		t.Errorf("err = %v, want rate limited", err)
	}
}
