// Package tasks implements the bot's scheduled jobs: presence rotation,
// proactive posts, memory flushes and store maintenance.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/responder"
	"github.com/edgard/groupmate/internal/store"
	"github.com/edgard/groupmate/internal/transport"
)

// Memory is the part of memory the tasks use.
type Memory interface {
	ChannelContext(channelID string, limit int) []memory.HistoryEntry
	Flush(ctx context.Context) error
}

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Memory    Memory
	Responder *responder.Generator
	Conn      transport.Conn
	// Store is checked for store.Maintainer; it may be nil.
	Store store.Store
	Dice  dice.Source
	// Now and Sleep override the clock, for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}
