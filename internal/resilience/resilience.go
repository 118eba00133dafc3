// Package resilience guards calls to flaky remote services with a circuit
// breaker and a rate limiter.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrCircuitOpen is returned while the breaker is open.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned when a half-open breaker is already
	// probing.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
	// ErrRateLimited is returned when waiting for the limiter fails.
	ErrRateLimited = errors.New("rate limit wait aborted")
)

// Config configures a Guard.
type Config struct {
	Name string
	// MaxFailures consecutive failures open the breaker. Zero disables the
	// breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// RatePerMinute caps calls. Zero means unlimited.
	RatePerMinute int
	// IsSuccessful decides which errors do not count as failures. By
	// default only nil and context cancellation are successes.
	IsSuccessful func(error) bool
	Logger       *slog.Logger
}

// Guard runs operations through the breaker and limiter.
type Guard struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(cfg Config) *Guard {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Guard{
		name: cfg.Name,
		log:  cfg.Logger.With("component", "resilience", "guard", cfg.Name),
	}

	if cfg.MaxFailures > 0 {
		if cfg.OpenTimeout <= 0 {
			cfg.OpenTimeout = time.Minute
		}
		isSuccessful := cfg.IsSuccessful
		if isSuccessful == nil {
			isSuccessful = func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			}
		}
		maxFailures := cfg.MaxFailures
		g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: isSuccessful,
		})
	}

	if cfg.RatePerMinute > 0 {
		burst := min(cfg.RatePerMinute, 5)
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), burst)
	}
	return g
}

// Do waits for the limiter, then runs op through the breaker.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	if g.cb == nil {
		return op(ctx)
	}
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, op(ctx)
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		g.log.DebugContext(ctx, "Call rejected by circuit breaker", "error", err)
	}
	return err
}

// State returns the breaker state name, or "disabled".
func (g *Guard) State() string {
	if g.cb == nil {
		return "disabled"
	}
	return g.cb.State().String()
}
