// Package memory provides in-memory Store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/harborlog/session-engine/ledger"
	"github.com/harborlog/session-engine/session"
	"github.com/harborlog/session-engine/social"
)

// =============================================================================
// MEMORY STORE - Implements session.Store and social.Store
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]session.Session
	entries     map[string]social.JournalEntry
	friendships map[string]social.Friendship
	polls       map[string]social.Poll
	votes       map[string]map[string]social.Vote // pollID -> userID -> vote
}

func New() *Memory {
	return &Memory{
		sessions:    make(map[string]session.Session),
		entries:     make(map[string]social.JournalEntry),
		friendships: make(map[string]social.Friendship),
		polls:       make(map[string]social.Poll),
		votes:       make(map[string]map[string]social.Vote),
	}
}

// copySession detaches the stored aggregate from the caller's value.
func copySession(s session.Session) session.Session {
	events := make([]ledger.Event, len(s.Events))
	copy(events, s.Events)
	s.Events = events
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}

// =============================================================================
// SESSION STORE
// =============================================================================

func (m *Memory) Sessions(_ context.Context, userID string) ([]session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []session.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			result = append(result, copySession(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result, nil
}

func (m *Memory) Session(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	c := copySession(s)
	return &c, nil
}

func (m *Memory) ActiveSession(_ context.Context, userID string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.EndTime == nil {
			c := copySession(s)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateSession(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *Memory) UpdateSession(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.ID]
	if !ok {
		return session.ErrNotFound
	}
	// Header fields only; the event log is written through AppendEvent.
	stored.Description = s.Description
	m.sessions[s.ID] = stored
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, sessionID string, e ledger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return session.ErrNotFound
	}
	if s.EndTime != nil {
		return session.ErrSessionEnded
	}
	s.Events = append(s.Events, e)
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) EndSession(_ context.Context, sessionID string, closing ledger.Event, endTime time.Time, sessionLog string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return session.ErrNotFound
	}
	if s.EndTime != nil {
		return session.ErrSessionEnded
	}
	// Closing event and end time land together or not at all.
	s.Events = append(s.Events, closing)
	s.EndTime = &endTime
	s.SessionLog = sessionLog
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(m.sessions, id)

	// Detach journal entries; never delete them.
	for entryID, e := range m.entries {
		if e.SessionID == id {
			e.SessionID = ""
			m.entries[entryID] = e
		}
	}
	return nil
}

// =============================================================================
// JOURNAL STORE
// =============================================================================

func (m *Memory) Entries(_ context.Context, userID string) ([]social.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []social.JournalEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) Entry(_ context.Context, id string) (*social.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, social.ErrEntryNotFound
	}
	return &e, nil
}

func (m *Memory) CreateEntry(_ context.Context, e social.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) UpdateEntry(_ context.Context, e social.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[e.ID]; !ok {
		return social.ErrEntryNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return social.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

// =============================================================================
// FRIEND STORE
// =============================================================================

func (m *Memory) Friendships(_ context.Context, userID string) ([]social.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []social.Friendship
	for _, f := range m.friendships {
		if f.Involves(userID) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) Friendship(_ context.Context, id string) (*social.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.friendships[id]
	if !ok {
		return nil, social.ErrFriendshipNotFound
	}
	return &f, nil
}

func (m *Memory) FriendshipBetween(_ context.Context, a, b string) (*social.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.friendships {
		if (f.RequesterID == a && f.AddresseeID == b) || (f.RequesterID == b && f.AddresseeID == a) {
			c := f
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateFriendship(_ context.Context, f social.Friendship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friendships[f.ID] = f
	return nil
}

func (m *Memory) UpdateFriendship(_ context.Context, f social.Friendship) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.friendships[f.ID]; !ok {
		return social.ErrFriendshipNotFound
	}
	m.friendships[f.ID] = f
	return nil
}

func (m *Memory) DeleteFriendship(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.friendships[id]; !ok {
		return social.ErrFriendshipNotFound
	}
	delete(m.friendships, id)
	return nil
}

// =============================================================================
// POLL STORE
// =============================================================================

func (m *Memory) Polls(_ context.Context) ([]social.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]social.Poll, 0, len(m.polls))
	for _, p := range m.polls {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) Poll(_ context.Context, id string) (*social.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.polls[id]
	if !ok {
		return nil, social.ErrPollNotFound
	}
	return &p, nil
}

func (m *Memory) CreatePoll(_ context.Context, p social.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[p.ID] = p
	return nil
}

func (m *Memory) SaveVote(_ context.Context, v social.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.polls[v.PollID]; !ok {
		return social.ErrPollNotFound
	}
	byUser, ok := m.votes[v.PollID]
	if !ok {
		byUser = make(map[string]social.Vote)
		m.votes[v.PollID] = byUser
	}
	byUser[v.UserID] = v // replace semantics: one vote per user per poll
	return nil
}

func (m *Memory) Votes(_ context.Context, pollID string) ([]social.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []social.Vote
	for _, v := range m.votes[pollID] {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CastAt.Before(result[j].CastAt)
	})
	return result, nil
}
