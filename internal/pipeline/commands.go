package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/transport"
)

// Command delays.
const (
	topicDelay  = time.Second
	searchDelay = 2 * time.Second
	statsTop    = 5
)

// ParseCommand splits a prefixed message into a lower-case command name
// and its argument text. A bare prefix is a command with an empty name.
func ParseCommand(text, prefix string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, prefix))
	if rest == "" {
		return "", "", true
	}
	name, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

type commandFunc func(p *Pipeline, ctx context.Context, conn transport.Conn, msg transport.Message, args string) error

var commands = map[string]commandFunc{
	"help":   (*Pipeline).cmdHelp,
	"topic":  (*Pipeline).cmdTopic,
	"mood":   (*Pipeline).cmdMood,
	"stats":  (*Pipeline).cmdStats,
	"ask":    (*Pipeline).cmdAsk,
	"search": (*Pipeline).cmdSearch,
}

func (p *Pipeline) runCommand(ctx context.Context, conn transport.Conn, msg transport.Message, name, args string) error {
	if name == "" {
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return conn.Send(ctx, msg.ChannelID, p.withPrefix(p.cfg.Messages.UnknownCommand))
	}
	return cmd(p, ctx, conn, msg, args)
}

// withPrefix rewrites the default "!" in a command hint to the configured
// prefix.
func (p *Pipeline) withPrefix(text string) string {
	if p.cfg.CommandPrefix == "!" {
		return text
	}
	return strings.ReplaceAll(text, "`!", "`"+p.cfg.CommandPrefix)
}

// typeFor shows typing while waiting d.
func (p *Pipeline) typeFor(ctx context.Context, conn transport.Conn, channelID string, d time.Duration) error {
	stop := transport.KeepTyping(ctx, conn, channelID, p.cfg.TypingRefresh)
	defer stop()
	return p.sleep(ctx, d)
}

func (p *Pipeline) cmdHelp(ctx context.Context, conn transport.Conn, msg transport.Message, _ string) error {
	return conn.SendEmbed(ctx, msg.ChannelID, HelpEmbed(p.cfg.CommandPrefix))
}

func (p *Pipeline) cmdTopic(ctx context.Context, conn transport.Conn, msg transport.Message, _ string) error {
	stop := transport.KeepTyping(ctx, conn, msg.ChannelID, p.cfg.TypingRefresh)
	defer stop()

	topic := p.gen.EnhanceTopicCommand(ctx, p.gen.Topic())
	text := topic + " " + p.gen.Question()
	if err := p.sleep(ctx, topicDelay); err != nil {
		return err
	}
	return conn.Send(ctx, msg.ChannelID, text)
}

func (p *Pipeline) cmdMood(ctx context.Context, conn transport.Conn, msg transport.Message, _ string) error {
	mood := p.gen.RandomMood()
	if err := p.mem.SetMood(mood); err != nil {
		return fmt.Errorf("set mood: %w", err)
	}
	return conn.Send(ctx, msg.ChannelID, p.gen.DescribeMood(ctx, mood))
}

func (p *Pipeline) cmdStats(ctx context.Context, conn transport.Conn, msg transport.Message, _ string) error {
	return conn.SendEmbed(ctx, msg.ChannelID, StatsEmbed(p.mem.Stats(statsTop)))
}

func (p *Pipeline) cmdAsk(ctx context.Context, conn transport.Conn, msg transport.Message, question string) error {
	if question == "" {
		return conn.Reply(ctx, msg, p.withPrefix(p.cfg.Messages.ProvideArgument))
	}
	if err := p.typeFor(ctx, conn, msg.ChannelID, ThinkTime(ModeQuestion, utf8.RuneCountInString(question))); err != nil {
		return err
	}
	return conn.Reply(ctx, msg, p.gen.AnswerQuestion(ctx, question, msg.ChannelID))
}

func (p *Pipeline) cmdSearch(ctx context.Context, conn transport.Conn, msg transport.Message, query string) error {
	if query == "" {
		return conn.Reply(ctx, msg, p.withPrefix(p.cfg.Messages.ProvideArgument))
	}
	if err := p.typeFor(ctx, conn, msg.ChannelID, searchDelay); err != nil {
		return err
	}
	results, err := p.gen.Search(ctx, query)
	if err != nil || len(results) == 0 {
		return conn.Reply(ctx, msg, p.cfg.Messages.SearchEmpty)
	}
	return conn.Reply(ctx, msg, p.gen.SummarizeSearch(ctx, query, results))
}

// StatsReport renders the stats embed as text, for the command line.
func StatsReport(st memory.Stats) string {
	return transport.RenderEmbed(StatsEmbed(st))
}
