// Package memory holds everything the bot remembers: user profiles, rolling
// per-channel history, group interest counts and the bot's own mood.
//
// Memory is the only writer of that state. Readers get copies. All mutation
// happens under one mutex; persistence writes are serialised by a second
// mutex so full snapshots never interleave on disk.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/edgard/groupmate/internal/sentiment"
)

// Default caps.
const (
	DefaultTopicCap   = 20
	DefaultHistoryCap = 100
)

// Persister writes full snapshots of both stores.
type Persister interface {
	SaveProfiles(ctx context.Context, state ProfileState) error
	SaveHistory(ctx context.Context, state HistoryState) error
}

// Loader reads both stores at startup.
type Loader interface {
	LoadProfiles(ctx context.Context) (ProfileState, error)
	LoadHistory(ctx context.Context) (HistoryState, error)
}

// Options configures a Memory.
type Options struct {
	// Persister receives snapshots on Flush. Nil disables persistence.
	Persister Persister
	// FlushOnWrite flushes both stores after every recorded interaction.
	FlushOnWrite bool
	TopicCap     int
	HistoryCap   int
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger *slog.Logger
}

// Memory is the bot's in-memory state.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]*UserProfile
	history      map[string][]HistoryEntry
	interests    Counter
	activeTopics map[string]any
	mood         Mood

	writeMu      sync.Mutex
	persister    Persister
	flushOnWrite bool

	topicCap   int
	historyCap int
	now        func() time.Time
	log        *slog.Logger
}

// New creates an empty Memory.
func New(opts Options) *Memory {
	if opts.TopicCap <= 0 {
		opts.TopicCap = DefaultTopicCap
	}
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Memory{
		users:        make(map[string]*UserProfile),
		history:      make(map[string][]HistoryEntry),
		activeTopics: make(map[string]any),
		mood:         MoodNeutral,
		persister:    opts.Persister,
		flushOnWrite: opts.FlushOnWrite,
		topicCap:     opts.TopicCap,
		historyCap:   opts.HistoryCap,
		now:          opts.Now,
		log:          opts.Logger.With("component", "memory"),
	}
}

// Load replaces the state with what l returns. A store that fails to load
// is logged and left empty; Load itself never fails.
func (m *Memory) Load(ctx context.Context, l Loader) {
	profiles, err := l.LoadProfiles(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "Failed to load profile store, starting empty", "error", err)
		profiles = ProfileState{}
	}
	history, err := l.LoadHistory(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "Failed to load history store, starting empty", "error", err)
		history = HistoryState{}
	}
	m.Restore(profiles, history)
	m.log.InfoContext(ctx, "Memory loaded", "users", len(profiles.UserData), "channels", len(history), "interests", profiles.GroupInterests.Len())
}

// RecordInteraction records one observed message and returns the updated
// profile of its author.
func (m *Memory) RecordInteraction(ctx context.Context, userID, username, content, channelID string) UserProfile {
	analysis := sentiment.Analyze(content)
	now := m.now()

	m.mu.Lock()
	p, ok := m.users[userID]
	if !ok {
		p = &UserProfile{
			Username:  username,
			FirstSeen: TS(now),
			Topics:    []string{},
			Sentiment: sentiment.Neutral,
		}
		m.users[userID] = p
	}
	p.Username = username
	p.InteractionCount++
	p.LastMessage = content
	p.LastInteraction = TS(now)
	p.Sentiment = analysis.Label

	if len(analysis.Topics) > 0 {
		p.Topics = keepLast(append(p.Topics, analysis.Topics...), m.topicCap)
		m.interests.Add(analysis.Topics...)
	}

	m.history[channelID] = keepLast(append(m.history[channelID], HistoryEntry{
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: TS(now),
	}), m.historyCap)

	out := p.clone()
	m.mu.Unlock()

	if m.flushOnWrite {
		if err := m.Flush(ctx); err != nil {
			m.log.ErrorContext(ctx, "Failed to flush memory after interaction", "error", err, "user_id", userID)
		}
	}
	return out
}

// keepLast trims s to its last n elements, reusing a fresh backing array so
// evicted entries can be collected.
func keepLast[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return append(make([]T, 0, n), s[len(s)-n:]...)
}

// RecentTopics returns up to limit of the most frequent group interests.
func (m *Memory) RecentTopics(limit int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interests.MostCommon(limit)
}

// UserInfo returns the profile for userID, or a zero profile if unknown.
func (m *Memory) UserInfo(userID string) UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[userID]
	if !ok {
		return UserProfile{}
	}
	return p.clone()
}

// ChannelContext returns the last limit entries of a channel's history in
// chronological order.
func (m *Memory) ChannelContext(channelID string, limit int) []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[channelID]
	if limit <= 0 || len(h) == 0 {
		return []HistoryEntry{}
	}
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]HistoryEntry(nil), h...)
}

// Mood returns the current mood.
func (m *Memory) Mood() Mood {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mood
}

// SetMood changes the current mood.
func (m *Memory) SetMood(mood Mood) error {
	if !mood.Valid() {
		return fmt.Errorf("unknown mood %q", mood)
	}
	m.mu.Lock()
	m.mood = mood
	m.mu.Unlock()
	return nil
}

// Stats ranks the top n topics and users and totals what is recorded.
func (m *Memory) Stats(n int) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{TopTopics: m.interests.MostCommon(n), TotalUsers: len(m.users)}
	users := make([]UserStat, 0, len(m.users))
	firstSeen := make(map[string]time.Time, len(m.users))
	for id, p := range m.users {
		users = append(users, UserStat{UserID: id, Username: p.Username, Interactions: p.InteractionCount})
		firstSeen[id] = p.FirstSeen.Time
		st.TotalMessages += p.InteractionCount
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.Interactions != b.Interactions {
			return a.Interactions > b.Interactions
		}
		if !firstSeen[a.UserID].Equal(firstSeen[b.UserID]) {
			return firstSeen[a.UserID].Before(firstSeen[b.UserID])
		}
		return a.UserID < b.UserID
	})
	if n >= 0 && len(users) > n {
		users = users[:n]
	}
	st.TopUsers = users
	return st
}

// Snapshot returns deep copies of both persisted stores. The
// last_interaction map is derived from the profiles.
func (m *Memory) Snapshot() (ProfileState, HistoryState) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ps := ProfileState{
		UserData:        make(map[string]UserProfile, len(m.users)),
		GroupInterests:  m.interests.Clone(),
		ActiveTopics:    make(map[string]any, len(m.activeTopics)),
		BotMood:         m.mood,
		LastInteraction: make(map[string]Timestamp, len(m.users)),
	}
	for id, p := range m.users {
		ps.UserData[id] = p.clone()
		if !p.LastInteraction.IsZero() {
			ps.LastInteraction[id] = p.LastInteraction
		}
	}
	for k, v := range m.activeTopics {
		ps.ActiveTopics[k] = v
	}

	hs := make(HistoryState, len(m.history))
	for ch, entries := range m.history {
		hs[ch] = append([]HistoryEntry(nil), entries...)
	}
	return ps, hs
}

// Restore replaces the state with the given stores, applying caps and
// filling profile timestamps missing from older files.
func (m *Memory) Restore(ps ProfileState, hs HistoryState) {
	users := make(map[string]*UserProfile, len(ps.UserData))
	for id, p := range ps.UserData {
		p := p.clone()
		if p.Topics == nil {
			p.Topics = []string{}
		}
		p.Topics = keepLast(p.Topics, m.topicCap)
		if p.Sentiment == "" {
			p.Sentiment = sentiment.Neutral
		}
		if p.LastInteraction.IsZero() {
			if ts, ok := ps.LastInteraction[id]; ok {
				p.LastInteraction = ts
			}
		}
		users[id] = &p
	}

	history := make(map[string][]HistoryEntry, len(hs))
	for ch, entries := range hs {
		history[ch] = keepLast(append([]HistoryEntry(nil), entries...), m.historyCap)
	}

	active := make(map[string]any, len(ps.ActiveTopics))
	for k, v := range ps.ActiveTopics {
		active[k] = v
	}

	mood := ps.BotMood
	if !mood.Valid() {
		mood = MoodNeutral
	}

	m.mu.Lock()
	m.users = users
	m.history = history
	m.interests = ps.GroupInterests.Clone()
	m.activeTopics = active
	m.mood = mood
	m.mu.Unlock()
}

// Flush writes both stores through the persister. Concurrent flushes are
// serialised and each writes a snapshot taken after the previous write.
func (m *Memory) Flush(ctx context.Context) error {
	if m.persister == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	ps, hs := m.Snapshot()
	var errs []error
	if err := m.persister.SaveProfiles(ctx, ps); err != nil {
		errs = append(errs, fmt.Errorf("save profiles: %w", err))
	}
	if err := m.persister.SaveHistory(ctx, hs); err != nil {
		errs = append(errs, fmt.Errorf("save history: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.log.DebugContext(ctx, "Memory flushed", "users", len(ps.UserData), "channels", len(hs))
	return nil
}
