// Package discord adapts a discordgo session to transport.Transport.
package discord

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/logger"
	"github.com/edgard/groupmate/internal/transport"
)

// messageLimit is Discord's per-message character cap.
const messageLimit = 2000

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions

// guildWait bounds how long the ready callback waits for the guilds listed
// in the Ready event to arrive.
const guildWait = 15 * time.Second

// Transport is a Discord bot connection.
type Transport struct {
	session   *discordgo.Session
	log       *slog.Logger
	guildWait time.Duration

	mu      sync.Mutex
	startup *startup
}

// New creates a session for token. Nothing is dialed until Run.
func New(token string, log *slog.Logger) (*Transport, error) {
	if token == "" {
		return nil, errors.NewConfigError("discord token cannot be empty", nil)
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.NewTransportError("failed to create discord session", err)
	}
	s.Identify.Intents = intents
	logger.BridgeDiscordgo(log)
	return newTransport(s, log, guildWait), nil
}

func newTransport(s *discordgo.Session, log *slog.Logger, wait time.Duration) *Transport {
	return &Transport{session: s, log: log.With("component", "discord"), guildWait: wait}
}

// Run opens the gateway and dispatches events to h until ctx is done.
func (t *Transport) Run(ctx context.Context, h transport.Handler) error {
	removeReady := t.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		t.onReady(ctx, h, r)
	})
	defer removeReady()
	removeGuild := t.session.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		t.onGuildCreate(g)
	})
	defer removeGuild()
	removeMessage := t.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if s.State.User == nil {
			return
		}
		msg, ok := FromMessage(m.Message, s.State.User.ID)
		if !ok {
			return
		}
		h.HandleMessage(ctx, t, msg)
	})
	defer removeMessage()

	if err := t.session.Open(); err != nil {
		return errors.NewTransportError("failed to open discord session", err)
	}
	t.log.InfoContext(ctx, "Discord gateway connected")

	<-ctx.Done()
	t.mu.Lock()
	if t.startup != nil {
		t.startup.cancel()
	}
	t.mu.Unlock()
	t.log.InfoContext(ctx, "Closing discord session")
	if err := t.session.Close(); err != nil {
		t.log.Warn("Error closing discord session", "error", err)
	}
	return nil
}

// onReady defers the ready callback until every guild listed in r has been
// delivered by a GuildCreate event, since Ready carries only unavailable
// guild stubs without channels.
func (t *Transport) onReady(ctx context.Context, h transport.Handler, r *discordgo.Ready) {
	ids := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		ids = append(ids, g.ID)
	}
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	t.log.InfoContext(ctx, "Discord session ready", "user", name, "guilds", len(ids))

	st := newStartup(ids, func() {
		t.log.InfoContext(ctx, "Guilds loaded, running ready handler")
		h.HandleReady(ctx, t)
	})
	t.mu.Lock()
	if t.startup != nil {
		t.startup.cancel()
	}
	t.startup = st
	t.mu.Unlock()

	// Guilds created before the gate was installed are already in state.
	for _, id := range ids {
		if g, err := t.session.State.Guild(id); err == nil && !g.Unavailable {
			st.arrived(id)
		}
	}
	st.start(t.guildWait)
}

func (t *Transport) onGuildCreate(g *discordgo.GuildCreate) {
	if g == nil || g.Guild == nil {
		return
	}
	t.mu.Lock()
	st := t.startup
	t.mu.Unlock()
	if st != nil {
		st.arrived(g.ID)
	}
}

// startup fires once, when all pending guilds have arrived or the wait ends.
type startup struct {
	mu      sync.Mutex
	pending map[string]struct{}
	fire    func()
	done    bool
	timer   *time.Timer
}

func newStartup(guildIDs []string, fire func()) *startup {
	pending := make(map[string]struct{}, len(guildIDs))
	for _, id := range guildIDs {
		pending[id] = struct{}{}
	}
	return &startup{pending: pending, fire: fire}
}

func (s *startup) start(wait time.Duration) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if len(s.pending) > 0 {
		s.timer = time.AfterFunc(wait, s.trigger)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.trigger()
}

func (s *startup) arrived(guildID string) {
	s.mu.Lock()
	_, waiting := s.pending[guildID]
	delete(s.pending, guildID)
	ready := waiting && len(s.pending) == 0
	s.mu.Unlock()
	if ready {
		s.trigger()
	}
}

func (s *startup) trigger() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.fire()
}

func (s *startup) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// FromMessage converts a gateway message. It reports false for messages
// from bots, including this one.
func FromMessage(m *discordgo.Message, botID string) (transport.Message, bool) {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == botID {
		return transport.Message{}, false
	}
	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			mentioned = true
			break
		}
	}
	return transport.Message{
		ID:         m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Text:       m.Content,
		Prompt:     StripMentions(m.Content, botID),
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		Mentioned:  mentioned,
	}, true
}

// StripMentions removes <@id> and <@!id> mentions of botID.
func StripMentions(content, botID string) string {
	re := regexp.MustCompile(`<@!?` + regexp.QuoteMeta(botID) + `>`)
	return strings.TrimSpace(re.ReplaceAllString(content, ""))
}

// Send posts text to channelID, split to fit Discord's limit.
func (t *Transport) Send(ctx context.Context, channelID, text string) error {
	for _, part := range transport.Chunk(text, messageLimit) {
		if _, err := t.session.ChannelMessageSend(channelID, part, discordgo.WithContext(ctx)); err != nil {
			return errors.NewTransportError("failed to send message", err)
		}
	}
	return nil
}

// Reply posts text as a reply referencing msg. Only the first chunk quotes.
func (t *Transport) Reply(ctx context.Context, msg transport.Message, text string) error {
	parts := transport.Chunk(text, messageLimit)
	ref := &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID, GuildID: msg.GuildID}
	if _, err := t.session.ChannelMessageSendReply(msg.ChannelID, parts[0], ref, discordgo.WithContext(ctx)); err != nil {
		return errors.NewTransportError("failed to send reply", err)
	}
	for _, part := range parts[1:] {
		if _, err := t.session.ChannelMessageSend(msg.ChannelID, part, discordgo.WithContext(ctx)); err != nil {
			return errors.NewTransportError("failed to send message", err)
		}
	}
	return nil
}

// SendEmbed posts a rich embed.
func (t *Transport) SendEmbed(ctx context.Context, channelID string, e transport.Embed) error {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if _, err := t.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return errors.NewTransportError("failed to send embed", err)
	}
	return nil
}

// React adds emoji to a message.
func (t *Transport) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := t.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return errors.NewTransportError("failed to add reaction", err)
	}
	return nil
}

// Typing triggers the typing indicator.
func (t *Transport) Typing(ctx context.Context, channelID string) error {
	if err := t.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return errors.NewTransportError("failed to send typing", err)
	}
	return nil
}

var activityTypes = map[transport.ActivityKind]discordgo.ActivityType{
	transport.ActivityPlaying:   discordgo.ActivityTypeGame,
	transport.ActivityWatching:  discordgo.ActivityTypeWatching,
	transport.ActivityListening: discordgo.ActivityTypeListening,
	transport.ActivityCompeting: discordgo.ActivityTypeCompeting,
}

// SetActivity updates the presence.
func (t *Transport) SetActivity(_ context.Context, a transport.Activity) error {
	err := t.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{Name: a.Name, Type: activityTypes[a.Kind]}},
	})
	if err != nil {
		return errors.NewTransportError("failed to update presence", err)
	}
	return nil
}

// Guilds lists the guilds in the session state.
func (t *Transport) Guilds(_ context.Context) ([]transport.Guild, error) {
	t.session.State.RLock()
	defer t.session.State.RUnlock()
	out := make([]transport.Guild, 0, len(t.session.State.Guilds))
	for _, g := range t.session.State.Guilds {
		out = append(out, transport.Guild{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

// Channels lists the text channels of guildID the bot may send to, in
// guild order.
func (t *Transport) Channels(_ context.Context, guildID string) ([]transport.Channel, error) {
	g, err := t.session.State.Guild(guildID)
	if err != nil {
		return nil, errors.NewTransportError("unknown guild "+guildID, err)
	}
	botID := t.session.State.User.ID
	var out []transport.Channel
	for _, ch := range g.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := t.session.State.UserChannelPermissions(botID, ch.ID)
		if err != nil || perms&discordgo.PermissionSendMessages == 0 {
			continue
		}
		out = append(out, transport.Channel{ID: ch.ID, Name: ch.Name})
	}
	return out, nil
}
