// Package pipeline decides whether and how the bot answers each inbound
// message and runs the chat commands.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/logger"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/responder"
	"github.com/edgard/groupmate/internal/transport"
)

// mentionContext is how much channel history backs a mention fallback.
const mentionContext = 10

// Memory is the part of memory the pipeline uses.
type Memory interface {
	RecordInteraction(ctx context.Context, userID, username, content, channelID string) memory.UserProfile
	ChannelContext(channelID string, limit int) []memory.HistoryEntry
	Stats(n int) memory.Stats
	SetMood(mood memory.Mood) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Deps holds the pipeline's collaborators.
type Deps struct {
	Memory    Memory
	Responder *responder.Generator
	Policy    Policy
	Config    config.BotConfig
	Logger    *slog.Logger
	// Sleep overrides the think-time wait, for tests.
	Sleep SleepFunc
}

// Pipeline handles transport events. It implements transport.Handler.
type Pipeline struct {
	mem    Memory
	gen    *responder.Generator
	policy Policy
	cfg    config.BotConfig
	sleep  SleepFunc
	log    *slog.Logger
}

var _ transport.Handler = (*Pipeline)(nil)

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Sleep == nil {
		deps.Sleep = Sleep
	}
	if deps.Config.CommandPrefix == "" {
		deps.Config.CommandPrefix = "!"
	}
	return &Pipeline{
		mem:    deps.Memory,
		gen:    deps.Responder,
		policy: deps.Policy,
		cfg:    deps.Config,
		sleep:  deps.Sleep,
		log:    deps.Logger.With("component", "pipeline"),
	}
}

// Sleep waits for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HandleMessage records msg and, if the dice allow, answers it and reacts
// to it. Failures are logged and answered with an apology.
func (p *Pipeline) HandleMessage(ctx context.Context, conn transport.Conn, msg transport.Message) {
	log := p.log.With(
		"event_id", uuid.NewString(),
		"channel_id", msg.ChannelID,
		"user_id", msg.AuthorID,
	)
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while handling message", "panic", r)
			p.apologize(ctx, conn, msg, log)
		}
	}()

	p.mem.RecordInteraction(ctx, msg.AuthorID, msg.AuthorName, msg.Text, msg.ChannelID)
	log.DebugContext(ctx, "Recorded message", "text_preview", logger.Truncate(msg.Text, 50), "mentioned", msg.Mentioned)

	if name, args, ok := ParseCommand(msg.Text, p.cfg.CommandPrefix); ok {
		log.InfoContext(ctx, "Running command", "command", name)
		if err := p.runCommand(ctx, conn, msg, name, args); err != nil {
			log.ErrorContext(ctx, "Command failed", "command", name, "error", err)
			p.send(ctx, conn, msg.ChannelID, p.cfg.Messages.CommandError, log)
		}
		return
	}

	if p.policy.ShouldRespond(msg) {
		if err := p.respond(ctx, conn, msg, log); err != nil && ctx.Err() == nil {
			log.ErrorContext(ctx, "Failed to answer message", "error", err)
			p.apologize(ctx, conn, msg, log)
		}
	}

	if p.policy.React() {
		if err := conn.React(ctx, msg.ChannelID, msg.ID, p.gen.Reaction()); err != nil {
			log.WarnContext(ctx, "Failed to add reaction", "error", err)
		}
	}
}

func (p *Pipeline) respond(ctx context.Context, conn transport.Conn, msg transport.Message, log *slog.Logger) error {
	mode := SelectMode(msg)
	text := msg.Text
	if mode == ModeMention {
		text = mentionPrompt(msg)
	}
	think := ThinkTime(mode, utf8.RuneCountInString(text))
	log.DebugContext(ctx, "Answering message", "mode", mode.String(), "think_time", think)

	stopTyping := transport.KeepTyping(ctx, conn, msg.ChannelID, p.cfg.TypingRefresh)
	defer stopTyping()

	reply := p.finishReply(ctx, msg.AuthorID, p.compose(ctx, msg, mode))

	if err := p.sleep(ctx, think); err != nil {
		return err
	}
	stopTyping()

	if mode == ModeMention || p.policy.Quote() {
		if err := conn.Reply(ctx, msg, reply); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
	} else if err := conn.Send(ctx, msg.ChannelID, reply); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	log.InfoContext(ctx, "Sent reply", "mode", mode.String(), "reply_preview", logger.Truncate(reply, 50))
	return nil
}

// finishReply replaces an empty reply with the safe default, then may
// personalize it for the author.
func (p *Pipeline) finishReply(ctx context.Context, authorID, reply string) string {
	if strings.TrimSpace(reply) == "" {
		reply = p.cfg.Messages.SafeDefault
	}
	if p.policy.Personalize() {
		reply = p.gen.Personalize(ctx, authorID, reply)
	}
	return reply
}

// mentionPrompt is the message with mentions stripped, or a plain greeting
// when nothing is left.
func mentionPrompt(msg transport.Message) string {
	if strings.TrimSpace(msg.Prompt) == "" {
		return "你好"
	}
	return msg.Prompt
}

func (p *Pipeline) compose(ctx context.Context, msg transport.Message, mode Mode) string {
	switch mode {
	case ModeMention:
		return p.gen.Mention(ctx, mentionPrompt(msg), msg.ChannelID, p.mem.ChannelContext(msg.ChannelID, mentionContext))
	case ModeQuestion:
		return p.gen.AnswerQuestion(ctx, msg.Text, msg.ChannelID)
	case ModeLong:
		return p.gen.Comment(ctx, msg.Text, p.mem.ChannelContext(msg.ChannelID, p.contextSize()))
	}
	if IsGreeting(msg.Text) {
		return p.gen.Greeting()
	}
	if p.policy.Comment() {
		return p.gen.Comment(ctx, msg.Text, p.mem.ChannelContext(msg.ChannelID, p.contextSize()))
	}
	return p.gen.Topic()
}

func (p *Pipeline) contextSize() int {
	if p.cfg.ContextSize > 0 {
		return p.cfg.ContextSize
	}
	return responder.ContextSize
}

func (p *Pipeline) apologize(ctx context.Context, conn transport.Conn, msg transport.Message, log *slog.Logger) {
	p.send(ctx, conn, msg.ChannelID, p.cfg.Messages.Apology, log)
}

func (p *Pipeline) send(ctx context.Context, conn transport.Conn, channelID, text string, log *slog.Logger) {
	if err := conn.Send(ctx, channelID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}

// HandleReady sets the startup activity and greets every guild.
func (p *Pipeline) HandleReady(ctx context.Context, conn transport.Conn) {
	log := p.log.With("event_id", uuid.NewString())

	if err := conn.SetActivity(ctx, transport.Activity{Kind: transport.ActivityPlaying, Name: p.cfg.Messages.StartupActivity}); err != nil {
		log.WarnContext(ctx, "Failed to set startup activity", "error", err)
	}

	guilds, err := conn.Guilds(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list guilds", "error", err)
		return
	}
	for _, g := range guilds {
		channels, err := conn.Channels(ctx, g.ID)
		if err != nil {
			log.WarnContext(ctx, "Failed to list channels", "guild_id", g.ID, "error", err)
			continue
		}
		ch, ok := GreetingChannel(channels)
		if !ok {
			log.InfoContext(ctx, "No sendable channel for startup greeting", "guild_id", g.ID)
			continue
		}
		if err := conn.Send(ctx, ch.ID, p.cfg.Messages.StartupGreeting); err != nil {
			log.WarnContext(ctx, "Failed to send startup greeting", "guild_id", g.ID, "channel_id", ch.ID, "error", err)
			continue
		}
		log.InfoContext(ctx, "Sent startup greeting", "guild", g.Name, "channel", ch.Name)
	}
}

// GreetingChannel picks the first channel named like "general", or else the
// first channel.
func GreetingChannel(channels []transport.Channel) (transport.Channel, bool) {
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch.Name), "general") {
			return ch, true
		}
	}
	if len(channels) == 0 {
		return transport.Channel{}, false
	}
	return channels[0], true
}
