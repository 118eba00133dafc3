package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupmate/internal/logger"
)

// logUpdates logs each update before and after it is handled.
func logUpdates(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			entry := log.With("update_id", update.ID)

			if m := update.Message; m != nil {
				entry = entry.With(
					"update_type", "message",
					"message_id", m.ID,
					"chat_id", m.Chat.ID,
					"text_preview", logger.Truncate(m.Text, 50),
				)
				if m.From != nil {
					entry = entry.With("user_id", m.From.ID)
				}
			} else {
				entry = entry.With("update_type", "other")
			}

			entry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			entry.DebugContext(ctx, "Finished processing update", "duration", time.Since(start))
		}
	}
}
