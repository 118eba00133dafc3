package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/groupmate/internal/sentiment"
)

// Timestamp is a time that marshals as RFC 3339 and also accepts the naive
// ISO-8601 form ("2006-01-02T15:04:05.999999", local time) found in older
// state files.
type Timestamp struct {
	time.Time
}

// TS wraps t as a Timestamp.
func TS(t time.Time) Timestamp { return Timestamp{Time: t} }

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses RFC 3339 or naive ISO-8601 text.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// UserProfile is what the bot remembers about one user.
type UserProfile struct {
	Username         string          `json:"username"`
	FirstSeen        Timestamp       `json:"first_seen,omitzero"`
	InteractionCount int             `json:"interaction_count"`
	Topics           []string        `json:"topics"`
	Sentiment        sentiment.Label `json:"sentiment"`
	LastMessage      string          `json:"last_message"`
	LastInteraction  Timestamp       `json:"last_interaction,omitzero"`
}

// Known reports whether the profile belongs to a user seen at least once.
func (p UserProfile) Known() bool { return p.InteractionCount > 0 }

func (p UserProfile) clone() UserProfile {
	p.Topics = append([]string{}, p.Topics...)
	return p
}

// HistoryEntry is one recorded message in a channel.
type HistoryEntry struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// BotUserID marks history entries authored by the bot itself.
const BotUserID = "bot"

// Mood is the bot's self-reported mood.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodExcited Mood = "excited"
	MoodCurious Mood = "curious"
	MoodTired   Mood = "tired"
	MoodPlayful Mood = "playful"
)

// Moods lists every valid Mood.
var Moods = []Mood{MoodHappy, MoodNeutral, MoodExcited, MoodCurious, MoodTired, MoodPlayful}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// ProfileState is the persisted shape of the profile store.
type ProfileState struct {
	UserData        map[string]UserProfile `json:"user_data"`
	GroupInterests  Counter                `json:"group_interests"`
	ActiveTopics    map[string]any         `json:"active_topics"`
	BotMood         Mood                   `json:"bot_mood"`
	LastInteraction map[string]Timestamp   `json:"last_interaction"`
}

// HistoryState is the persisted shape of the history store: channel id to
// entries in chronological order.
type HistoryState map[string][]HistoryEntry

// UserStat is one row of the most-active-users ranking.
type UserStat struct {
	UserID       string
	Username     string
	Interactions int
}

// Stats summarises memory for the stats command.
type Stats struct {
	TopTopics     []string
	TopUsers      []UserStat
	TotalUsers    int
	TotalMessages int
}
