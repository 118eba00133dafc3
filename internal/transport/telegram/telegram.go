// Package telegram adapts go-telegram/bot to transport.Transport. Telegram
// has no guild list, so every group chat the bot has seen a message in is
// reported as a guild with a single channel.
package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/sanitize"
	"github.com/edgard/groupmate/internal/transport"
)

const messageLimit = 4096

// Transport is a Telegram bot connection.
type Transport struct {
	token string
	opts  []bot.Option
	log   *slog.Logger
	text  *sanitize.Policy

	bot *bot.Bot
	me  *models.User

	mu    sync.Mutex
	chats map[int64]string
}

// New prepares a Telegram connection. Nothing is dialed until Run.
// Extra options are passed to bot.New.
func New(token string, log *slog.Logger, opts ...bot.Option) (*Transport, error) {
	if token == "" {
		return nil, errors.NewConfigError("telegram token cannot be empty", nil)
	}
	return &Transport{
		token: token,
		opts:  opts,
		log:   log.With("component", "telegram"),
		text:  sanitize.NewPlainText(),
		chats: make(map[int64]string),
	}, nil
}

// Run authenticates, reports ready and long-polls until ctx is done.
func (t *Transport) Run(ctx context.Context, h transport.Handler) error {
	opts := append([]bot.Option{
		bot.WithMiddlewares(logUpdates(t.log)),
		bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
			msg, ok := t.fromUpdate(update)
			if !ok {
				return
			}
			h.HandleMessage(ctx, t, msg)
		}),
	}, t.opts...)

	b, err := bot.New(t.token, opts...)
	if err != nil {
		return errors.NewTransportError("failed to create telegram bot", err)
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return errors.NewTransportError("failed to authenticate telegram bot", err)
	}
	t.bot, t.me = b, me
	t.log.InfoContext(ctx, "Telegram bot authenticated", "bot_id", me.ID, "username", me.Username)

	go h.HandleReady(ctx, t)

	b.Start(ctx)
	t.log.InfoContext(ctx, "Telegram polling stopped")
	return nil
}

func (t *Transport) fromUpdate(update *models.Update) (transport.Message, bool) {
	if update == nil || update.Message == nil {
		return transport.Message{}, false
	}
	m := update.Message
	if m.Chat.Type == models.ChatTypeGroup || m.Chat.Type == models.ChatTypeSupergroup {
		t.mu.Lock()
		t.chats[m.Chat.ID] = m.Chat.Title
		t.mu.Unlock()
	}
	return FromMessage(m, t.me)
}

// FromMessage converts an incoming message. It reports false for messages
// without text or from bots.
func FromMessage(m *models.Message, me *models.User) (transport.Message, bool) {
	if m == nil || m.From == nil || m.From.IsBot {
		return transport.Message{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if strings.TrimSpace(text) == "" {
		return transport.Message{}, false
	}

	mentioned := m.Chat.Type == models.ChatTypePrivate
	prompt := text
	if me != nil {
		if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil && m.ReplyToMessage.From.ID == me.ID {
			mentioned = true
		}
		if me.Username != "" {
			handle := "@" + me.Username
			if strings.Contains(strings.ToLower(text), strings.ToLower(handle)) {
				mentioned = true
				prompt = removeFold(text, handle)
			}
		}
	}

	name := m.From.Username
	if name == "" {
		name = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
	}
	chat := strconv.FormatInt(m.Chat.ID, 10)
	return transport.Message{
		ID:         strconv.Itoa(m.ID),
		AuthorID:   strconv.FormatInt(m.From.ID, 10),
		AuthorName: name,
		Text:       text,
		Prompt:     strings.TrimSpace(prompt),
		ChannelID:  chat,
		GuildID:    chat,
		Mentioned:  mentioned,
	}, true
}

// removeFold deletes every case-insensitive occurrence of sub from s.
func removeFold(s, sub string) string {
	lower, lsub := strings.ToLower(s), strings.ToLower(sub)
	var b strings.Builder
	for {
		i := strings.Index(lower, lsub)
		if i < 0 || len(lower) != len(s) {
			break
		}
		b.WriteString(s[:i])
		s, lower = s[i+len(sub):], lower[i+len(lsub):]
	}
	b.WriteString(s)
	return b.String()
}

func chatID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("invalid telegram chat id "+id, err)
	}
	return n, nil
}

func (t *Transport) send(ctx context.Context, id string, replyTo int, text string) error {
	chat, err := chatID(id)
	if err != nil {
		return err
	}
	for i, part := range transport.Chunk(t.text.Text(text), messageLimit) {
		params := &bot.SendMessageParams{ChatID: chat, Text: part}
		if i == 0 && replyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
		}
		if _, err := t.bot.SendMessage(ctx, params); err != nil {
			return errors.NewTransportError("failed to send message", err)
		}
	}
	return nil
}

// Send posts text to a chat with Markdown stripped.
func (t *Transport) Send(ctx context.Context, channelID, text string) error {
	return t.send(ctx, channelID, 0, text)
}

// Reply posts text as a reply to msg.
func (t *Transport) Reply(ctx context.Context, msg transport.Message, text string) error {
	id, err := strconv.Atoi(msg.ID)
	if err != nil {
		return errors.NewValidationError("invalid telegram message id "+msg.ID, err)
	}
	return t.send(ctx, msg.ChannelID, id, text)
}

// SendEmbed posts the embed rendered as text.
func (t *Transport) SendEmbed(ctx context.Context, channelID string, e transport.Embed) error {
	return t.send(ctx, channelID, 0, transport.RenderEmbed(e))
}

// React sets an emoji reaction. Telegram accepts only a fixed emoji set.
func (t *Transport) React(ctx context.Context, channelID, messageID, emoji string) error {
	chat, err := chatID(channelID)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return errors.NewValidationError("invalid telegram message id "+messageID, err)
	}
	_, err = t.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chat,
		MessageID: id,
		Reaction: []models.ReactionType{{
			Type:              models.ReactionTypeTypeEmoji,
			ReactionTypeEmoji: &models.ReactionTypeEmoji{Type: models.ReactionTypeTypeEmoji, Emoji: emoji},
		}},
	})
	if err != nil {
		return errors.NewTransportError("failed to set reaction", err)
	}
	return nil
}

// Typing sends the typing chat action.
func (t *Transport) Typing(ctx context.Context, channelID string) error {
	chat, err := chatID(channelID)
	if err != nil {
		return err
	}
	if _, err := t.bot.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chat, Action: models.ChatActionTyping}); err != nil {
		return errors.NewTransportError("failed to send typing", err)
	}
	return nil
}

var activityVerbs = map[transport.ActivityKind]string{
	transport.ActivityPlaying:   "正在玩",
	transport.ActivityWatching:  "正在看",
	transport.ActivityListening: "正在听",
	transport.ActivityCompeting: "正在参加",
}

// SetActivity shows the activity as the bot's short description.
func (t *Transport) SetActivity(ctx context.Context, a transport.Activity) error {
	_, err := t.bot.SetMyShortDescription(ctx, &bot.SetMyShortDescriptionParams{
		ShortDescription: activityVerbs[a.Kind] + " " + a.Name,
	})
	if err != nil {
		return errors.NewTransportError("failed to set short description", err)
	}
	return nil
}

// Guilds lists the group chats seen so far.
func (t *Transport) Guilds(context.Context) ([]transport.Guild, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]transport.Guild, 0, len(t.chats))
	for id, title := range t.chats {
		out = append(out, transport.Guild{ID: strconv.FormatInt(id, 10), Name: title})
	}
	return out, nil
}

// Channels returns the chat itself.
func (t *Transport) Channels(_ context.Context, guildID string) ([]transport.Channel, error) {
	id, err := chatID(guildID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	title, ok := t.chats[id]
	t.mu.Unlock()
	if !ok {
		return nil, errors.NewTransportError("unknown chat "+guildID, nil)
	}
	return []transport.Channel{{ID: guildID, Name: title}}, nil
}
