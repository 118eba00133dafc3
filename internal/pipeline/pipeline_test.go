package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/dice/dicetest"
	"github.com/edgard/groupmate/internal/llm"
	"github.com/edgard/groupmate/internal/logger"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/pipeline"
	"github.com/edgard/groupmate/internal/responder"
	"github.com/edgard/groupmate/internal/transport"
)

type sent struct {
	kind      string
	channelID string
	text      string
}

type fakeConn struct {
	mu       sync.Mutex
	out      []sent
	embeds   []transport.Embed
	activity []transport.Activity
	guilds   []transport.Guild
	channels map[string][]transport.Channel
	replyErr error
}

func (c *fakeConn) record(kind, ch, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, sent{kind, ch, text})
}

func (c *fakeConn) Send(_ context.Context, ch, text string) error {
	c.record("send", ch, text)
	return nil
}

func (c *fakeConn) Reply(_ context.Context, msg transport.Message, text string) error {
	if c.replyErr != nil {
		return c.replyErr
	}
	c.record("reply", msg.ChannelID, text)
	return nil
}

func (c *fakeConn) SendEmbed(_ context.Context, ch string, e transport.Embed) error {
	c.mu.Lock()
	c.embeds = append(c.embeds, e)
	c.mu.Unlock()
	c.record("embed", ch, e.Title)
	return nil
}

func (c *fakeConn) React(_ context.Context, ch, _, emoji string) error {
	c.record("react", ch, emoji)
	return nil
}

func (c *fakeConn) Typing(context.Context, string) error { return nil }

func (c *fakeConn) SetActivity(_ context.Context, a transport.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activity = append(c.activity, a)
	return nil
}

func (c *fakeConn) Guilds(context.Context) ([]transport.Guild, error) { return c.guilds, nil }

func (c *fakeConn) Channels(_ context.Context, id string) ([]transport.Channel, error) {
	return c.channels[id], nil
}

func (c *fakeConn) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var k []string
	for _, o := range c.out {
		k = append(k, o.kind)
	}
	return k
}

func (c *fakeConn) last() sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.out) == 0 {
		return sent{}
	}
	return c.out[len(c.out)-1]
}

type harness struct {
	p      *pipeline.Pipeline
	mem    *memory.Memory
	conn   *fakeConn
	mu     sync.Mutex
	sleeps []time.Duration
}

var botConfig = config.BotConfig{
	CommandPrefix: "!",
	Messages: config.MessagesConfig{
		Apology:         "apology",
		SafeDefault:     "safe",
		UnknownCommand:  "unknown, try `!help`",
		CommandError:    "command error",
		StartupGreeting: "hello group",
		StartupActivity: "starting",
		SearchEmpty:     "nothing found",
		ProvideArgument: "usage: `!ask question`",
	},
}

func newHarness(t *testing.T, c llm.Completer, floats ...float64) *harness {
	t.Helper()
	h := &harness{mem: memory.New(memory.Options{}), conn: &fakeConn{}}
	gen := responder.New(responder.Deps{
		Memory: h.mem,
		LLM:    c,
		Dice:   &dicetest.Scripted{},
		Logger: logger.Discard(),
	})
	h.p = pipeline.New(pipeline.Deps{
		Memory:    h.mem,
		Responder: gen,
		Policy:    pipeline.NewRandomPolicy(dicetest.Floats(floats...)),
		Config:    botConfig,
		Logger:    logger.Discard(),
		Sleep: func(_ context.Context, d time.Duration) error {
			h.mu.Lock()
			h.sleeps = append(h.sleeps, d)
			h.mu.Unlock()
			return nil
		},
	})
	return h
}

func reply(text string) llm.Completer {
	return llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) { return text, nil })
}

var down = llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
	return "", errors.New("down")
})

func message(text string) transport.Message {
	return transport.Message{ID: "m1", AuthorID: "u1", AuthorName: "alice", Text: text, Prompt: text, ChannelID: "c1", GuildID: "g1"}
}

func TestMentionAlwaysAnswered(t *testing.T) {
	t.Parallel()
	h := newHarness(t, reply("hey alice"))
	msg := message("<@bot> how's it going")
	msg.Prompt = "how's it going"
	msg.Mentioned = true

	h.p.HandleMessage(context.Background(), h.conn, msg)

	got := h.conn.last()
	if got.kind != "reply" || got.text != "hey alice" {
		t.Fatalf("last output = %+v, kinds %v", got, h.conn.kinds())
	}
	want := pipeline.ThinkTime(pipeline.ModeMention, len([]rune(msg.Prompt)))
	if len(h.sleeps) != 1 || h.sleeps[0] != want {
		t.Errorf("sleeps = %v, want [%v]", h.sleeps, want)
	}
	if n := h.mem.UserInfo("u1").InteractionCount; n != 1 {
		t.Errorf("interaction count = %d", n)
	}
}

func TestIgnoredMessageIsStillRecorded(t *testing.T) {
	t.Parallel()
	h := newHarness(t, reply("unused"), 0.99)
	h.p.HandleMessage(context.Background(), h.conn, message("just chatting"))

	if k := h.conn.kinds(); len(k) != 0 {
		t.Errorf("expected no output, got %v", k)
	}
	if ctx := h.mem.ChannelContext("c1", 10); len(ctx) != 1 || ctx[0].Content != "just chatting" {
		t.Errorf("history = %+v", ctx)
	}
}

func TestChatterGreetingSentPlain(t *testing.T) {
	t.Parallel()
	// respond, no personalize, no quote, no reaction
	h := newHarness(t, down, 0.1, 0.99, 0.99, 0.99)
	h.p.HandleMessage(context.Background(), h.conn, message("hello everyone"))

	got := h.conn.last()
	if got.kind != "send" || got.text == "" {
		t.Fatalf("output = %v", h.conn.kinds())
	}
	if h.sleeps[0] != time.Second {
		t.Errorf("think time = %v, want 1s", h.sleeps[0])
	}
}

func TestReactionIndependentOfReply(t *testing.T) {
	t.Parallel()
	// no reply, react
	h := newHarness(t, down, 0.99, 0.1)
	h.p.HandleMessage(context.Background(), h.conn, message("nice weather"))

	if k := h.conn.kinds(); len(k) != 1 || k[0] != "react" {
		t.Errorf("output = %v, want a single reaction", k)
	}
}

func TestFailedReplyApologizes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, reply("hi"))
	h.conn.replyErr = errors.New("gateway closed")
	msg := message("hey")
	msg.Mentioned = true

	h.p.HandleMessage(context.Background(), h.conn, msg)
	if got := h.conn.last(); got.kind != "send" || got.text != "apology" {
		t.Errorf("last output = %+v", got)
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		text     string
		wantKind string
		wantText string
	}{
		{"help", "!help", "embed", "虚拟群友机器人帮助"},
		{"stats", "!STATS", "embed", "群组统计信息"},
		{"unknown", "!dance", "send", "unknown, try `!help`"},
		{"ask without question", "!ask", "reply", "usage: `!ask question`"},
		{"ask", "!ask what is python?", "reply", ""},
		{"search without backend", "!search golang", "reply", "nothing found"},
		{"mood", "!mood", "send", responder.MoodText(memory.MoodHappy)},
		{"topic", "!topic", "send", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, down)
			h.p.HandleMessage(context.Background(), h.conn, message(tt.text))

			got := h.conn.last()
			if got.kind != tt.wantKind {
				t.Fatalf("output kind = %q, want %q (all: %v)", got.kind, tt.wantKind, h.conn.kinds())
			}
			if tt.wantText != "" && got.text != tt.wantText {
				t.Errorf("output = %q, want %q", got.text, tt.wantText)
			}
			if got.text == "" {
				t.Error("empty output")
			}
			if n := h.mem.UserInfo("u1").InteractionCount; n != 1 {
				t.Errorf("command was not recorded, count = %d", n)
			}
		})
	}
}

func TestStatsEmbedCountsCommandAuthor(t *testing.T) {
	t.Parallel()
	h := newHarness(t, down)
	h.p.HandleMessage(context.Background(), h.conn, message("!stats"))

	e := h.conn.embeds[0]
	last := e.Fields[len(e.Fields)-1]
	if last.Name != "总体统计" || !strings.Contains(last.Value, "记录用户数: 1") || !strings.Contains(last.Value, "总消息数: 1") {
		t.Errorf("totals field = %+v", last)
	}
	if !strings.Contains(pipeline.StatsReport(h.mem.Stats(5)), "alice (1条消息)") {
		t.Errorf("report missing user ranking")
	}
}

func TestHandleReadyGreetsGeneral(t *testing.T) {
	t.Parallel()
	h := newHarness(t, down)
	h.conn.guilds = []transport.Guild{{ID: "g1", Name: "one"}, {ID: "g2", Name: "two"}, {ID: "g3", Name: "empty"}}
	h.conn.channels = map[string][]transport.Channel{
		"g1": {{ID: "a", Name: "random"}, {ID: "b", Name: "General-Chat"}},
		"g2": {{ID: "c", Name: "lobby"}},
	}

	h.p.HandleReady(context.Background(), h.conn)

	if len(h.conn.activity) != 1 || h.conn.activity[0].Name != "starting" {
		t.Errorf("activity = %+v", h.conn.activity)
	}
	var chans []string
	for _, o := range h.conn.out {
		if o.text != "hello group" {
			t.Errorf("unexpected output %+v", o)
		}
		chans = append(chans, o.channelID)
	}
	if strings.Join(chans, ",") != "b,c" {
		t.Errorf("greeted channels = %v, want b,c", chans)
	}
}

func TestReplyBranches(t *testing.T) {
	t.Parallel()
	long := "this is a rather long message about the weather and the weekend plans we have"
	tests := []struct {
		name      string
		text      string
		floats    []float64
		wantKinds []string
		wantThink time.Duration
	}{
		// respond, no personalize, quote, no reaction
		{"long comment quoted", long, []float64{0.1, 0.99, 0.1, 0.99}, []string{"reply"},
			pipeline.ThinkTime(pipeline.ModeLong, len([]rune(long)))},
		// respond, no personalize, plain, no reaction
		{"long comment plain", long, []float64{0.1, 0.99, 0.99, 0.99}, []string{"send"},
			pipeline.ThinkTime(pipeline.ModeLong, len([]rune(long)))},
		{"question under the reply chance", "what is this?", []float64{0.69, 0.99}, []string{"send"},
			pipeline.ThinkTime(pipeline.ModeQuestion, len([]rune("what is this?")))},
		{"question over the reply chance", "what is this?", []float64{0.71}, nil, 0},
		{"chatter over the reply chance", "just chatting", []float64{0.31}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, reply("nice"), tt.floats...)
			h.p.HandleMessage(context.Background(), h.conn, message(tt.text))

			if got := strings.Join(h.conn.kinds(), ","); got != strings.Join(tt.wantKinds, ",") {
				t.Fatalf("output kinds = %q, want %v", got, tt.wantKinds)
			}
			if tt.wantThink == 0 {
				if len(h.sleeps) != 0 {
					t.Errorf("unexpected think time %v", h.sleeps)
				}
				return
			}
			if len(h.sleeps) != 1 || h.sleeps[0] != tt.wantThink {
				t.Errorf("sleeps = %v, want [%v]", h.sleeps, tt.wantThink)
			}
		})
	}
}

func TestLongCommentThinkTime(t *testing.T) {
	t.Parallel()
	if got := pipeline.ThinkTime(pipeline.ModeLong, 60); got != 1800*time.Millisecond {
		t.Errorf("ThinkTime(long, 60) = %v, want 1.8s", got)
	}
	if got := pipeline.ThinkTime(pipeline.ModeLong, 1000); got != 3*time.Second {
		t.Errorf("ThinkTime(long, 1000) = %v, want the 3s cap", got)
	}
}

func TestPersonalizeRoll(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		roll float64
		want bool
	}{
		{"under the chance", 0.69, true},
		{"over the chance", 0.71, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// personalize roll, then no reaction
			h := newHarness(t, down, tt.roll, 0.99)
			for i := 0; i < 11; i++ {
				h.mem.RecordInteraction(context.Background(), "u1", "alice", "weather forecast", "c1")
			}
			msg := message("<@bot> tell me")
			msg.Prompt = "tell me"
			msg.Mentioned = true

			h.p.HandleMessage(context.Background(), h.conn, msg)

			got := h.conn.last()
			if got.kind != "reply" {
				t.Fatalf("output = %v", h.conn.kinds())
			}
			if personalized := strings.Contains(got.text, "很感兴趣吗？"); personalized != tt.want {
				t.Errorf("reply %q personalized = %v, want %v", got.text, personalized, tt.want)
			}
		})
	}
}

func TestMentionThinkTimeUsesPrompt(t *testing.T) {
	t.Parallel()
	h := newHarness(t, reply("ok"))
	msg := message("<@123456789012345678> <@123456789012345678> hi")
	msg.Prompt = "hi"
	msg.Mentioned = true

	h.p.HandleMessage(context.Background(), h.conn, msg)

	if want := pipeline.ThinkTime(pipeline.ModeMention, 2); len(h.sleeps) != 1 || h.sleeps[0] != want {
		t.Errorf("sleeps = %v, want [%v]", h.sleeps, want)
	}
}

func TestPanicWhileComposingApologizes(t *testing.T) {
	t.Parallel()
	boom := llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) { panic("boom") })
	h := newHarness(t, boom)
	msg := message("<@bot> hello?")
	msg.Prompt = "hello?"
	msg.Mentioned = true

	h.p.HandleMessage(context.Background(), h.conn, msg)

	if got := h.conn.last(); got.kind != "send" || got.text != "apology" {
		t.Errorf("last output = %+v, want the apology", got)
	}
}

func TestBarePrefixIsSilentCommand(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"!", "! "} {
		// a chat roll would reply and react
		h := newHarness(t, reply("chatty"), 0.01)
		h.p.HandleMessage(context.Background(), h.conn, message(text))

		if k := h.conn.kinds(); len(k) != 0 {
			t.Errorf("%q: output = %v, want none", text, k)
		}
		if n := h.mem.UserInfo("u1").InteractionCount; n != 1 {
			t.Errorf("%q: count = %d, want the message recorded", text, n)
		}
	}
}

func TestFinishReplyPersonalizesSafeDefault(t *testing.T) {
	t.Parallel()
	h := newHarness(t, down, 0.1)
	for i := 0; i < 11; i++ {
		h.mem.RecordInteraction(context.Background(), "u1", "alice", "weather forecast", "c1")
	}

	got := h.p.FinishReply(context.Background(), "u1", "  ")
	if !strings.HasPrefix(got, "safe") || !strings.Contains(got, "很感兴趣吗？") {
		t.Errorf("FinishReply = %q, want the personalized safe default", got)
	}
}
