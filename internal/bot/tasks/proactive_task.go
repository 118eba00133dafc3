package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/transport"
)

// Proactive post tuning.
const (
	recentWindow    = 24 * time.Hour
	proactiveChance = 0.7
	topicChance     = 0.6
	questionChance  = 0.7
	historyLimit    = 10
	typingPerRune   = 50 * time.Millisecond
	maxTypingDelay  = 3 * time.Second
	typingRefresh   = 8 * time.Second
)

// newProactiveTask posts, in one random channel per guild that was active
// during the last day, either a new topic or a follow-up to the
// conversation.
func newProactiveTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "proactive_interaction")

	return func(ctx context.Context) error {
		guilds, err := deps.Conn.Guilds(ctx)
		if err != nil {
			return fmt.Errorf("list guilds: %w", err)
		}

		var errs []error
		for _, g := range guilds {
			channels, err := deps.Conn.Channels(ctx, g.ID)
			if err != nil {
				log.WarnContext(ctx, "Failed to list channels", "guild_id", g.ID, "error", err)
				continue
			}
			if len(channels) == 0 {
				continue
			}
			ch := dice.Pick(deps.Dice, channels)
			history := deps.Memory.ChannelContext(ch.ID, historyLimit)
			if !activeSince(history, deps.Now().Add(-recentWindow)) || !dice.Chance(deps.Dice, proactiveChance) {
				log.DebugContext(ctx, "Skipping quiet channel", "guild_id", g.ID, "channel_id", ch.ID)
				continue
			}

			if err := post(ctx, deps, ch, history); err != nil {
				log.ErrorContext(ctx, "Failed to post proactive message", "channel", ch.Name, "error", err)
				errs = append(errs, err)
				continue
			}
			log.InfoContext(ctx, "Posted proactive message", "guild", g.Name, "channel", ch.Name)
		}
		return errors.Join(errs...)
	}
}

func post(ctx context.Context, deps TaskDeps, ch transport.Channel, history []memory.HistoryEntry) error {
	stop := transport.KeepTyping(ctx, deps.Conn, ch.ID, typingRefresh)
	defer stop()

	var text string
	if dice.Chance(deps.Dice, topicChance) {
		text = deps.Responder.EnhanceTopic(ctx, deps.Responder.Topic())
		if dice.Chance(deps.Dice, questionChance) {
			text += " " + deps.Responder.Question()
		}
	} else {
		text = deps.Responder.Followup(ctx, history, ch.ID)
	}

	if err := deps.Sleep(ctx, TypingDelay(text)); err != nil {
		return err
	}
	return deps.Conn.Send(ctx, ch.ID, text)
}

// TypingDelay is how long posting text is made to look like typing.
func TypingDelay(text string) time.Duration {
	return min(time.Duration(utf8.RuneCountInString(text))*typingPerRune, maxTypingDelay)
}

func activeSince(history []memory.HistoryEntry, since time.Time) bool {
	for _, h := range history {
		if h.Timestamp.After(since) {
			return true
		}
	}
	return false
}
