package pipeline

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/transport"
)

// Reply probabilities.
const (
	QuestionReplyChance = 0.7
	ChatterReplyChance  = 0.3
	ReactChance         = 0.2
	PersonalizeChance   = 0.7
	QuoteChance         = 0.5
	CommentChance       = 0.5
)

// Policy makes the random decisions of the pipeline.
type Policy interface {
	// ShouldRespond decides whether msg gets a reply at all.
	ShouldRespond(msg transport.Message) bool
	React() bool
	Personalize() bool
	// Quote decides whether a reply quotes the message it answers.
	Quote() bool
	// Comment picks a comment over a new topic for short chatter.
	Comment() bool
}

// RandomPolicy draws every decision from a dice.Source.
type RandomPolicy struct {
	src dice.Source
}

// NewRandomPolicy creates a RandomPolicy.
func NewRandomPolicy(src dice.Source) *RandomPolicy {
	return &RandomPolicy{src: src}
}

// ShouldRespond always answers mentions. Questions are answered with
// probability QuestionReplyChance and other messages ChatterReplyChance.
func (p *RandomPolicy) ShouldRespond(msg transport.Message) bool {
	if msg.Mentioned {
		return true
	}
	if IsQuestion(msg.Text) {
		return dice.Chance(p.src, QuestionReplyChance)
	}
	return dice.Chance(p.src, ChatterReplyChance)
}

func (p *RandomPolicy) React() bool       { return dice.Chance(p.src, ReactChance) }
func (p *RandomPolicy) Personalize() bool { return dice.Chance(p.src, PersonalizeChance) }
func (p *RandomPolicy) Quote() bool       { return dice.Chance(p.src, QuoteChance) }
func (p *RandomPolicy) Comment() bool     { return dice.Chance(p.src, CommentChance) }

// Mode is how a message is answered.
type Mode int

const (
	ModeMention Mode = iota
	ModeQuestion
	ModeLong
	ModeChatter
)

func (m Mode) String() string {
	switch m {
	case ModeMention:
		return "mention"
	case ModeQuestion:
		return "question"
	case ModeLong:
		return "long"
	default:
		return "chatter"
	}
}

// longMessage is the length above which chatter gets a comment.
const longMessage = 50

// IsQuestion reports whether text contains a question mark.
func IsQuestion(text string) bool {
	return strings.ContainsAny(text, "?？")
}

// SelectMode picks the answer mode for msg.
func SelectMode(msg transport.Message) Mode {
	switch {
	case msg.Mentioned:
		return ModeMention
	case IsQuestion(msg.Text):
		return ModeQuestion
	case utf8.RuneCountInString(msg.Text) > longMessage:
		return ModeLong
	default:
		return ModeChatter
	}
}

// ThinkTime is how long the bot pretends to type before answering a
// message of n characters in mode.
func ThinkTime(mode Mode, n int) time.Duration {
	var secs float64
	switch mode {
	case ModeMention:
		secs = min(2+0.01*float64(n), 4)
	case ModeQuestion:
		secs = min(2+0.01*float64(n), 5)
	case ModeLong:
		secs = min(1.5+0.005*float64(n), 3)
	default:
		secs = 1
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}

var latinGreetings = map[string]bool{"hello": true, "hi": true}

// IsGreeting reports whether text says hello. Latin greetings must be whole
// words so that "this" is not a greeting.
func IsGreeting(text string) bool {
	if strings.Contains(text, "你好") || strings.Contains(text, "嗨") {
		return true
	}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if latinGreetings[w] {
			return true
		}
	}
	return false
}
