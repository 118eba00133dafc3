// Package transport defines the chat platform surface the bot talks to.
// Adapters for Discord and Telegram live in sub-packages.
package transport

import (
	"context"
	"strings"
	"time"
)

// Message is one inbound chat message.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	// Text is the raw message body.
	Text string
	// Prompt is Text with mentions of the bot removed.
	Prompt    string
	ChannelID string
	GuildID   string
	// Mentioned reports whether the bot was addressed directly.
	Mentioned bool
}

// ActivityKind is the verb shown with a presence activity.
type ActivityKind int

const (
	ActivityPlaying ActivityKind = iota
	ActivityWatching
	ActivityListening
	ActivityCompeting
)

// Activity is the bot's presence status.
type Activity struct {
	Kind ActivityKind
	Name string
}

// Guild is a server (Discord) or group chat (Telegram).
type Guild struct {
	ID   string
	Name string
}

// Channel is a place the bot may post in.
type Channel struct {
	ID   string
	Name string
}

// EmbedField is one titled block of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message. Platforms without embeds render it as text.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// Conn is the outbound side of a platform connection.
type Conn interface {
	Send(ctx context.Context, channelID, text string) error
	// Reply sends text as a quoted reply to msg.
	Reply(ctx context.Context, msg Message, text string) error
	SendEmbed(ctx context.Context, channelID string, e Embed) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	// Typing shows the typing indicator once. Platforms clear it after a
	// few seconds.
	Typing(ctx context.Context, channelID string) error
	SetActivity(ctx context.Context, a Activity) error
	Guilds(ctx context.Context) ([]Guild, error)
	// Channels lists the channels of guildID the bot can send to.
	Channels(ctx context.Context, guildID string) ([]Channel, error)
}

// Handler receives inbound events. Each call runs on its own goroutine.
type Handler interface {
	HandleReady(ctx context.Context, conn Conn)
	HandleMessage(ctx context.Context, conn Conn, msg Message)
}

// Transport is a platform connection.
type Transport interface {
	Conn
	// Run connects, dispatches events to h and blocks until ctx is done.
	// It returns an error only when the connection cannot be established.
	Run(ctx context.Context, h Handler) error
}

// KeepTyping shows the typing indicator on channelID every interval until
// the returned stop function is called or ctx is done.
func KeepTyping(ctx context.Context, conn Conn, channelID string, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.Typing(ctx, channelID)
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = conn.Typing(ctx, channelID)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Chunk splits text into pieces of at most limit runes, preferring to
// break at newlines.
func Chunk(text string, limit int) []string {
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return []string{text}
	}
	var out []string
	for len(r) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if r[i] == '\n' {
				cut = i + 1
				break
			}
		}
		out = append(out, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

// RenderEmbed formats e as plain text.
func RenderEmbed(e Embed) string {
	var b strings.Builder
	if e.Title != "" {
		b.WriteString(e.Title + "\n")
	}
	if e.Description != "" {
		b.WriteString(e.Description + "\n")
	}
	for _, f := range e.Fields {
		b.WriteString("\n" + f.Name + "\n" + f.Value + "\n")
	}
	if e.Footer != "" {
		b.WriteString("\n" + e.Footer)
	}
	return b.String()
}
