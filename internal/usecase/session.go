package usecase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"pressbot/internal/domain"
	"pressbot/internal/infra/metrics"
)

// Session is one user's bounded conversation window. It is owned exclusively
// by the SessionStore; callers interact with it only between store calls.
type Session struct {
	mu             sync.RWMutex
	ID             string // ULID, globally unique
	ChatID         string // channel lookup key
	Msgs           []domain.Message
	CreatedAt      time.Time
	LastActivityAt time.Time

	maxMessages int // trim bound, 2x the configured context size
}

func newSession(chatID string, maxMessages int, now time.Time) *Session {
	return &Session{
		ID:             generateULID(now),
		ChatID:         chatID,
		Msgs:           make([]domain.Message, 0),
		CreatedAt:      now,
		LastActivityAt: now,
		maxMessages:    maxMessages,
	}
}

func generateULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Append adds a message, refreshes the activity timestamp, and trims the
// window from the front so it never exceeds the configured bound. Trimming
// is FIFO by message, regardless of role pairing.
func (s *Session) Append(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Msgs = append(s.Msgs, msg)
	s.LastActivityAt = msg.Timestamp
	if s.maxMessages > 0 && len(s.Msgs) > s.maxMessages {
		s.Msgs = s.Msgs[len(s.Msgs)-s.maxMessages:]
	}
}

// Messages returns a copy of the message history (thread-safe).
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.Message, len(s.Msgs))
	copy(cp, s.Msgs)
	return cp
}

// Len returns the current message count.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Msgs)
}

func (s *Session) lastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActivityAt
}

// SessionStoreOptions bounds the store.
type SessionStoreOptions struct {
	MaxSessions        int           // LRU capacity
	MaxContextMessages int           // sessions trim to twice this
	TTL                time.Duration // sweep threshold on LastActivityAt
}

// SessionStore holds every live session, bounded by count (LRU eviction on
// insert) and by age (TTL sweep, driven by the cleanup scheduler).
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     SessionStoreOptions
	now      func() time.Time // injectable for tests
}

// NewSessionStore creates a session store with the given bounds.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

// GetOrCreate returns the session for chatID, creating it if absent. Every
// call refreshes the session's activity timestamp. When the store is at
// capacity, the session with the oldest activity is evicted first.
func (st *SessionStore) GetOrCreate(chatID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if s, ok := st.sessions[chatID]; ok {
		s.mu.Lock()
		s.LastActivityAt = now
		s.mu.Unlock()
		return s
	}

	if st.opts.MaxSessions > 0 && len(st.sessions) >= st.opts.MaxSessions {
		st.evictOldestLocked()
	}

	s := newSession(chatID, 2*st.opts.MaxContextMessages, now)
	st.sessions[chatID] = s
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	return s
}

// evictOldestLocked drops the least-recently-active session. Caller holds st.mu.
func (st *SessionStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range st.sessions {
		at := s.lastActivity()
		if oldestID == "" || at.Before(oldest) {
			oldestID = id
			oldest = at
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
	}
}

// Reset replaces the session's message list with an empty one ("new chat").
// The session itself survives, so store accounting is unchanged. A reset on
// an unknown chatID is a no-op.
func (st *SessionStore) Reset(chatID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[chatID]
	if !ok {
		return
	}
	s.mu.Lock()
	s.Msgs = s.Msgs[:0]
	s.LastActivityAt = st.now()
	s.mu.Unlock()
}

// Get returns an existing session or domain.ErrSessionNotFound.
func (st *SessionStore) Get(chatID string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[chatID]
	st.mu.Unlock()
	if !ok {
		return nil, domain.NewDomainError("SessionStore.Get", domain.ErrSessionNotFound, chatID)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes every session idle longer than the TTL and returns the count
// of removed sessions. It is called only by the cleanup scheduler, never
// inline with request handling.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.opts.TTL)
	removed := 0
	for id, s := range st.sessions {
		if s.lastActivity().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	return removed
}
