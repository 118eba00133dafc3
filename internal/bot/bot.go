// Package bot wires the transport, the message pipeline and the scheduler
// together and runs them until shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/groupmate/internal/transport"
)

// flushTimeout bounds the final save on shutdown.
const flushTimeout = 10 * time.Second

// Flusher persists memory.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Bot owns the running components.
type Bot struct {
	logger    *slog.Logger
	transport transport.Transport
	handler   transport.Handler
	scheduler *Scheduler
	memory    Flusher
}

// NewBot creates a Bot.
func NewBot(logger *slog.Logger, t transport.Transport, h transport.Handler, scheduler *Scheduler, mem Flusher) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		transport: t,
		handler:   h,
		scheduler: scheduler,
		memory:    mem,
	}
}

// readyHandler reports the first HandleReady before passing it on.
type readyHandler struct {
	transport.Handler
	once  sync.Once
	ready chan struct{}
}

func (r *readyHandler) HandleReady(ctx context.Context, c transport.Conn) {
	r.once.Do(func() { close(r.ready) })
	r.Handler.HandleReady(ctx, c)
}

// Run starts the transport and blocks until ctx is cancelled or the
// transport fails. The scheduler starts once the transport is first ready.
// Memory is flushed before returning.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)
	h := &readyHandler{Handler: b.handler, ready: make(chan struct{})}

	g.Go(func() error {
		if err := b.transport.Run(gCtx, h); err != nil {
			return err
		}
		if gCtx.Err() == nil {
			return errors.New("transport stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-h.ready:
		case <-gCtx.Done():
			return nil
		}
		if err := b.scheduler.Start(gCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if ferr := b.memory.Flush(flushCtx); ferr != nil {
		b.logger.Error("Final memory flush failed", "error", ferr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}
	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
