// Package responder composes the text of every kind of bot message. Each
// reply is built from ordered tiers (knowledge base, search, language
// model, templates) and the first tier that yields text wins, so every
// method returns something even when the collaborators are down.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/llm"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/search"
	"github.com/edgard/groupmate/internal/sentiment"
)

// Tuning knobs.
const (
	ContextSize               = 5
	TopicPool                 = 5
	SearchResults             = search.DefaultResults
	PersonalizeMinInteraction = 10
)

// MemoryReader is the part of memory the generator reads.
type MemoryReader interface {
	RecentTopics(limit int) []string
	UserInfo(userID string) memory.UserProfile
	ChannelContext(channelID string, limit int) []memory.HistoryEntry
}

// Deps holds the generator's collaborators.
type Deps struct {
	Memory MemoryReader
	LLM    llm.Completer
	Search search.Searcher
	Dice   dice.Source
	Logger *slog.Logger
}

// Generator produces reply text.
type Generator struct {
	mem    MemoryReader
	llm    llm.Completer
	search search.Searcher
	dice   dice.Source
	log    *slog.Logger
}

// New creates a Generator. Nil LLM and search collaborators behave as
// permanently unavailable.
func New(deps Deps) *Generator {
	if deps.LLM == nil {
		deps.LLM = llm.Disabled{}
	}
	if deps.Search == nil {
		deps.Search = noSearch{}
	}
	if deps.Dice == nil {
		deps.Dice = dice.NewTimeSeeded()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		mem:    deps.Memory,
		llm:    deps.LLM,
		search: deps.Search,
		dice:   deps.Dice,
		log:    deps.Logger.With("component", "responder"),
	}
}

type noSearch struct{}

func (noSearch) Search(context.Context, string, int) ([]search.Result, error) {
	return nil, search.ErrNotConfigured
}

// Greeting returns a random greeting.
func (g *Generator) Greeting() string { return dice.Pick(g.dice, greetings) }

// Reaction returns a random reaction emoji.
func (g *Generator) Reaction() string { return dice.Pick(g.dice, reactions) }

// Question returns a random engagement question.
func (g *Generator) Question() string { return dice.Pick(g.dice, questions) }

// Topic returns a topic starter about one of the group's top interests, or
// about a knowledge-base subject when there are none yet.
func (g *Generator) Topic() string {
	topics := g.mem.RecentTopics(TopicPool)
	if len(topics) == 0 {
		topics = knowledgeKeys()
	}
	topic := dice.Pick(g.dice, topics)
	return fmt.Sprintf(dice.Pick(g.dice, topicStarters), topic)
}

// ask runs one LLM request as a tier.
func (g *Generator) ask(name, system string, history []memory.HistoryEntry, prompt string) Tier {
	return Tier{Name: name, Run: func(ctx context.Context) Result {
		return FromLLM(g.llm.Complete(ctx, llm.BuildMessages(system, history, prompt)))
	}}
}

// AnswerQuestion answers from the knowledge base, then web search for
// questions about current events, then the model alone. It never returns
// an empty string.
func (g *Generator) AnswerQuestion(ctx context.Context, question, channelID string) string {
	lower := strings.ToLower(question)

	for _, k := range knowledgeBase {
		if strings.Contains(lower, strings.ToLower(k.keyword)) {
			text, _ := FirstSuccess(ctx, g.log,
				g.ask("knowledge_rephrase", "", nil, fmt.Sprintf(promptKnowledge, k.answer, question)),
				Fixed("knowledge_raw", k.answer),
			)
			return text
		}
	}

	history := g.mem.ChannelContext(channelID, ContextSize)
	var tiers []Tier
	if needsSearch(lower) {
		tiers = append(tiers, Tier{Name: "search", Run: func(ctx context.Context) Result {
			results, err := g.search.Search(ctx, question, SearchResults)
			if err != nil {
				return Failed(err)
			}
			if len(results) == 0 {
				return Result{Status: StatusEmpty}
			}
			formatted := search.Format(results)
			text, _ := FirstSuccess(ctx, g.log,
				g.ask("search_summary", systemSearchAnswer, history, fmt.Sprintf(promptSearchAnswer, question, formatted)),
				Fixed("search_raw", fmt.Sprintf(searchFallback, formatted)),
			)
			return OK(text)
		}})
	}
	tiers = append(tiers,
		g.ask("direct", systemDirectAnswer, history, question),
		Fixed("answer_default", answerFallback),
	)

	text, _ := FirstSuccess(ctx, g.log, tiers...)
	return text
}

func needsSearch(lowerQuestion string) bool {
	for _, w := range recencyWords {
		if strings.Contains(lowerQuestion, w) {
			return true
		}
	}
	return false
}

// Comment reacts briefly to message, falling back to a template matching
// its sentiment.
func (g *Generator) Comment(ctx context.Context, message string, history []memory.HistoryEntry) string {
	text, _ := FirstSuccess(ctx, g.log,
		g.ask("comment", systemComment, history, fmt.Sprintf(promptComment, message)),
		Fixed("comment_template", g.templateComment(message)),
	)
	return text
}

func (g *Generator) templateComment(message string) string {
	switch sentiment.Analyze(message).Label {
	case sentiment.Positive:
		return dice.Pick(g.dice, positiveComments)
	case sentiment.Negative:
		return dice.Pick(g.dice, negativeComments)
	default:
		return dice.Pick(g.dice, neutralComments)
	}
}

// Personalize mentions one of a familiar user's interests. Users with ten
// or fewer interactions, or no topics, get base back unchanged.
func (g *Generator) Personalize(ctx context.Context, userID, base string) string {
	p := g.mem.UserInfo(userID)
	if p.InteractionCount <= PersonalizeMinInteraction || len(p.Topics) == 0 {
		return base
	}
	topic := dice.Pick(g.dice, p.Topics)
	tmpl := dice.Pick(g.dice, personalizeTemplates)

	text, _ := FirstSuccess(ctx, g.log,
		g.ask("personalize", systemPersonalize, nil, fmt.Sprintf(promptPersonalize, base, topic)),
		Fixed("personalize_template", tmpl(base, topic)),
	)
	return text
}

// Followup continues a conversation: a new topic when there is none, an
// answer when the last message asks something, otherwise a model-written
// continuation or a comment.
func (g *Generator) Followup(ctx context.Context, history []memory.HistoryEntry, channelID string) string {
	if len(history) == 0 {
		return g.Topic()
	}
	last := history[len(history)-1].Content
	if strings.ContainsAny(last, "?？") {
		return g.AnswerQuestion(ctx, last, channelID)
	}

	text, ok := FirstSuccess(ctx, g.log, g.ask("followup", systemFollowup, history, promptFollowup))
	if ok {
		return text
	}
	return g.Comment(ctx, last, nil)
}

// Mention replies to a direct mention. The model answers with the last few
// channel messages as context; without it the reply is a Followup over the
// wider history.
func (g *Generator) Mention(ctx context.Context, prompt, channelID string, history []memory.HistoryEntry) string {
	recent := history
	if len(recent) > ContextSize {
		recent = recent[len(recent)-ContextSize:]
	}
	text, ok := FirstSuccess(ctx, g.log, g.ask("mention", systemMention, recent, prompt))
	if ok {
		return text
	}
	return g.Followup(ctx, history, channelID)
}

// EnhanceTopic asks the model to make a proactive topic starter sound more
// natural.
func (g *Generator) EnhanceTopic(ctx context.Context, starter string) string {
	return g.enhance(ctx, promptEnhanceProactive, starter)
}

// EnhanceTopicCommand is EnhanceTopic with the wording used by the topic
// command.
func (g *Generator) EnhanceTopicCommand(ctx context.Context, starter string) string {
	return g.enhance(ctx, promptEnhanceCommand, starter)
}

func (g *Generator) enhance(ctx context.Context, prompt, starter string) string {
	text, _ := FirstSuccess(ctx, g.log,
		g.ask("enhance_topic", "", nil, fmt.Sprintf(prompt, starter)),
		Fixed("topic_raw", starter),
	)
	return text
}

// RandomMood picks a mood.
func (g *Generator) RandomMood() memory.Mood { return dice.Pick(g.dice, memory.Moods) }

// MoodText returns the fixed description of mood.
func MoodText(mood memory.Mood) string {
	if t, ok := moodTexts[mood]; ok {
		return t
	}
	return moodTexts[memory.MoodNeutral]
}

// DescribeMood has the model describe mood, falling back to its fixed text.
func (g *Generator) DescribeMood(ctx context.Context, mood memory.Mood) string {
	text, _ := FirstSuccess(ctx, g.log,
		g.ask("mood", "", nil, fmt.Sprintf(promptMood, mood)),
		Fixed("mood_text", MoodText(mood)),
	)
	return text
}

// SummarizeSearch has the model summarise results for query, falling back
// to the formatted results.
func (g *Generator) SummarizeSearch(ctx context.Context, query string, results []search.Result) string {
	formatted := search.Format(results)
	text, _ := FirstSuccess(ctx, g.log,
		g.ask("search_summary", "", nil, fmt.Sprintf(promptSearchSummary, query, formatted)),
		Fixed("search_raw", formatted),
	)
	return text
}

// Search runs a web search for the search command.
func (g *Generator) Search(ctx context.Context, query string) ([]search.Result, error) {
	results, err := g.search.Search(ctx, query, SearchResults)
	if err != nil && !errors.Is(err, search.ErrNotConfigured) {
		g.log.WarnContext(ctx, "Search command failed", "query", query, "error", err)
	}
	return results, err
}
