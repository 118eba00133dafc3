package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/groupmate/internal/transport"
)

// NewWithSession wraps an existing session with a custom guild wait.
func NewWithSession(s *discordgo.Session, log *slog.Logger, wait time.Duration) *Transport {
	return newTransport(s, log, wait)
}

// DispatchReady feeds a Ready event to the transport.
func (t *Transport) DispatchReady(ctx context.Context, h transport.Handler, r *discordgo.Ready) {
	t.onReady(ctx, h, r)
}

// DispatchGuildCreate feeds a GuildCreate event to the transport.
func (t *Transport) DispatchGuildCreate(g *discordgo.GuildCreate) {
	t.onGuildCreate(g)
}
