package discord_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/groupmate/internal/logger"
	"github.com/edgard/groupmate/internal/pipeline"
	"github.com/edgard/groupmate/internal/transport"
	"github.com/edgard/groupmate/internal/transport/discord"
)

const botID = "999"

func TestFromMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		msg           *discordgo.Message
		wantOK        bool
		wantMentioned bool
		wantPrompt    string
	}{
		{
			name:   "plain",
			msg:    &discordgo.Message{ID: "1", ChannelID: "c", Content: "hello", Author: &discordgo.User{ID: "u1", Username: "alice"}},
			wantOK: true, wantPrompt: "hello",
		},
		{
			name: "mention",
			msg: &discordgo.Message{
				ID: "2", ChannelID: "c", Content: "<@999> how are you",
				Author:   &discordgo.User{ID: "u1", Username: "alice"},
				Mentions: []*discordgo.User{{ID: botID}},
			},
			wantOK: true, wantMentioned: true, wantPrompt: "how are you",
		},
		{
			name:   "own message",
			msg:    &discordgo.Message{Content: "hi", Author: &discordgo.User{ID: botID}},
			wantOK: false,
		},
		{
			name:   "other bot",
			msg:    &discordgo.Message{Content: "hi", Author: &discordgo.User{ID: "b2", Bot: true}},
			wantOK: false,
		},
		{
			name:   "no author",
			msg:    &discordgo.Message{Content: "hi"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := discord.FromMessage(tt.msg, botID)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Mentioned != tt.wantMentioned || got.Prompt != tt.wantPrompt {
				t.Errorf("got %+v", got)
			}
			if got.AuthorName != "alice" || got.ID != tt.msg.ID {
				t.Errorf("author/id not carried over: %+v", got)
			}
		})
	}
}

func TestStripMentions(t *testing.T) {
	t.Parallel()
	if got := discord.StripMentions("<@!999>  <@999>", botID); got != "" {
		t.Errorf("StripMentions = %q", got)
	}
	if got := discord.StripMentions("hi <@123> <@999>", botID); got != "hi <@123>" {
		t.Errorf("StripMentions = %q", got)
	}
}

// readyRecorder reports the channels visible when the ready callback runs.
type readyRecorder struct {
	seen chan []transport.Channel
}

func newReadyRecorder() *readyRecorder {
	return &readyRecorder{seen: make(chan []transport.Channel, 4)}
}

func (r *readyRecorder) HandleReady(ctx context.Context, conn transport.Conn) {
	var all []transport.Channel
	guilds, _ := conn.Guilds(ctx)
	for _, g := range guilds {
		chs, _ := conn.Channels(ctx, g.ID)
		all = append(all, chs...)
	}
	r.seen <- all
}

func (r *readyRecorder) HandleMessage(context.Context, transport.Conn, transport.Message) {}

func (r *readyRecorder) wait(t *testing.T, d time.Duration) ([]transport.Channel, bool) {
	t.Helper()
	select {
	case chs := <-r.seen:
		return chs, true
	case <-time.After(d):
		return nil, false
	}
}

func newSession(t *testing.T) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatal(err)
	}
	s.State.User = &discordgo.User{ID: botID, Username: "groupmate"}
	return s
}

func addGuild(t *testing.T, s *discordgo.Session, id string) {
	t.Helper()
	g := &discordgo.Guild{
		ID:      id,
		Name:    "guild " + id,
		OwnerID: botID,
		Channels: []*discordgo.Channel{
			{ID: id + "-voice", GuildID: id, Name: "general-voice", Type: discordgo.ChannelTypeGuildVoice},
			{ID: id + "-memes", GuildID: id, Name: "memes", Type: discordgo.ChannelTypeGuildText},
			{ID: id + "-general", GuildID: id, Name: "general", Type: discordgo.ChannelTypeGuildText},
		},
	}
	if err := s.State.GuildAdd(g); err != nil {
		t.Fatal(err)
	}
	if err := s.State.MemberAdd(&discordgo.Member{GuildID: id, User: &discordgo.User{ID: botID}}); err != nil {
		t.Fatal(err)
	}
}

func TestReadyWaitsForGuildCreate(t *testing.T) {
	t.Parallel()
	s := newSession(t)
	tr := discord.NewWithSession(s, logger.Discard(), time.Minute)
	h := newReadyRecorder()

	tr.DispatchReady(context.Background(), h, &discordgo.Ready{
		User:   s.State.User,
		Guilds: []*discordgo.Guild{{ID: "g1", Unavailable: true}},
	})
	if _, fired := h.wait(t, 20*time.Millisecond); fired {
		t.Fatal("ready handler ran before the guild arrived")
	}

	addGuild(t, s, "g1")
	tr.DispatchGuildCreate(&discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1"}})

	chs, fired := h.wait(t, time.Second)
	if !fired {
		t.Fatal("ready handler did not run after the guild arrived")
	}
	ch, ok := pipeline.GreetingChannel(chs)
	if !ok || ch.ID != "g1-general" {
		t.Errorf("greeting channel = %+v from %+v, want g1-general", ch, chs)
	}
	if _, again := h.wait(t, 20*time.Millisecond); again {
		t.Error("ready handler ran twice")
	}
}

func TestReadyTimesOutOnMissingGuild(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		guilds []*discordgo.Guild
	}{
		{"no guilds", nil},
		{"guild never arrives", []*discordgo.Guild{{ID: "gone", Unavailable: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newSession(t)
			tr := discord.NewWithSession(s, logger.Discard(), 10*time.Millisecond)
			h := newReadyRecorder()

			tr.DispatchReady(context.Background(), h, &discordgo.Ready{User: s.State.User, Guilds: tt.guilds})
			if _, fired := h.wait(t, time.Second); !fired {
				t.Error("ready handler never ran")
			}
		})
	}
}

func TestReadyCountsGuildsAlreadyInState(t *testing.T) {
	t.Parallel()
	s := newSession(t)
	addGuild(t, s, "g1")
	tr := discord.NewWithSession(s, logger.Discard(), time.Minute)
	h := newReadyRecorder()

	tr.DispatchReady(context.Background(), h, &discordgo.Ready{
		User:   s.State.User,
		Guilds: []*discordgo.Guild{{ID: "g1", Unavailable: true}},
	})
	if chs, fired := h.wait(t, time.Second); !fired || len(chs) != 2 {
		t.Errorf("fired = %v, channels = %+v", fired, chs)
	}
}
