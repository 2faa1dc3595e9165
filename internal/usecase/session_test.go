package usecase

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pressbot/internal/domain"
)

// fakeClock returns a controllable now func anchored at the current time.
func fakeClock() (func() time.Time, func(d time.Duration)) {
	current := time.Now()
	now := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return now, advance
}

func newTestStore(opts SessionStoreOptions) (*SessionStore, func(d time.Duration)) {
	st := NewSessionStore(opts)
	now, advance := fakeClock()
	st.now = now
	return st, advance
}

func TestSessionStoreGetOrCreate(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 20, TTL: time.Hour})

	s1 := st.GetOrCreate("chat-1")
	if s1 == nil {
		t.Fatal("expected session")
	}
	if s1.ChatID != "chat-1" {
		t.Errorf("ChatID = %q, want chat-1", s1.ChatID)
	}
	if s1.ID == "" {
		t.Error("expected non-empty session ID")
	}

	s2 := st.GetOrCreate("chat-1")
	if s1 != s2 {
		t.Error("same chat should return the same session")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestSessionIDsUnique(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 100, MaxContextMessages: 20, TTL: time.Hour})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := st.GetOrCreate(fmt.Sprintf("chat-%d", i))
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestSessionTrimsToTwiceContextSize(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})
	s := st.GetOrCreate("chat-1")

	for i := 0; i < 100; i++ {
		s.Append(domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}

	if got := s.Len(); got != 10 {
		t.Fatalf("Len = %d, want 10 (2x context size)", got)
	}

	// Oldest messages are dropped first.
	msgs := s.Messages()
	if msgs[0].Content != "msg-90" {
		t.Errorf("first retained message = %q, want msg-90", msgs[0].Content)
	}
	if msgs[len(msgs)-1].Content != "msg-99" {
		t.Errorf("last retained message = %q, want msg-99", msgs[len(msgs)-1].Content)
	}
}

func TestSessionBelowBoundNotTrimmed(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})
	s := st.GetOrCreate("chat-1")

	for i := 0; i < 7; i++ {
		s.Append(domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}

	if got := s.Len(); got != 7 {
		t.Errorf("Len = %d, want 7", got)
	}
	if s.Messages()[0].Content != "msg-0" {
		t.Error("messages below the bound must not be dropped")
	}
}

func TestSessionMessagesReturnsCopy(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})
	s := st.GetOrCreate("chat-1")
	s.Append(domain.Message{Role: domain.RoleUser, Content: "original"})

	msgs := s.Messages()
	msgs[0].Content = "mutated"

	if s.Messages()[0].Content != "original" {
		t.Error("Messages must return a copy, not the backing slice")
	}
}

func TestSessionStoreCapacityEviction(t *testing.T) {
	st, advance := newTestStore(SessionStoreOptions{MaxSessions: 3, MaxContextMessages: 5, TTL: time.Hour})

	// Create sessions with distinct activity times.
	st.GetOrCreate("chat-1")
	advance(time.Second)
	st.GetOrCreate("chat-2")
	advance(time.Second)
	st.GetOrCreate("chat-3")
	advance(time.Second)

	if st.Len() != 3 {
		t.Fatalf("Len = %d, want 3", st.Len())
	}

	// Touch chat-1 so chat-2 becomes the oldest.
	st.GetOrCreate("chat-1")
	advance(time.Second)

	// Capacity is full: the next new session must evict chat-2.
	st.GetOrCreate("chat-4")

	if st.Len() != 3 {
		t.Fatalf("Len after eviction = %d, want 3", st.Len())
	}
	if _, err := st.Get("chat-2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Error("expected chat-2 (least recently active) to be evicted")
	}
	if _, err := st.Get("chat-1"); err != nil {
		t.Error("recently touched chat-1 must survive eviction")
	}
	if _, err := st.Get("chat-4"); err != nil {
		t.Error("newly created chat-4 must exist")
	}
}

func TestSessionStoreNeverExceedsCapacity(t *testing.T) {
	st, advance := newTestStore(SessionStoreOptions{MaxSessions: 5, MaxContextMessages: 5, TTL: time.Hour})

	for i := 0; i < 20; i++ {
		st.GetOrCreate(fmt.Sprintf("chat-%d", i))
		advance(time.Millisecond)
		if st.Len() > 5 {
			t.Fatalf("Len = %d after insert %d, capacity is 5", st.Len(), i)
		}
	}
}

func TestSessionStoreSweepTTL(t *testing.T) {
	st, advance := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: 30 * time.Minute})

	st.GetOrCreate("stale")
	advance(20 * time.Minute)
	st.GetOrCreate("fresh")

	advance(15 * time.Minute) // stale is now 35m idle, fresh 15m

	removed := st.Sweep()
	if removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if _, err := st.Get("stale"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Error("stale session should be swept")
	}
	if _, err := st.Get("fresh"); err != nil {
		t.Error("fresh session should survive the sweep")
	}
}

func TestSessionStoreSweepEmpty(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})
	if removed := st.Sweep(); removed != 0 {
		t.Errorf("Sweep on empty store removed %d, want 0", removed)
	}
}

func TestSessionStoreActivityRefreshPreventsSweep(t *testing.T) {
	st, advance := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: 30 * time.Minute})

	st.GetOrCreate("chat-1")
	advance(25 * time.Minute)
	st.GetOrCreate("chat-1") // refreshes activity
	advance(25 * time.Minute)

	if removed := st.Sweep(); removed != 0 {
		t.Errorf("Sweep removed %d, want 0 after activity refresh", removed)
	}
}

func TestSessionStoreReset(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})

	s := st.GetOrCreate("chat-1")
	s.Append(domain.Message{Role: domain.RoleUser, Content: "hello"})
	s.Append(domain.Message{Role: domain.RoleAssistant, Content: "hi"})

	st.Reset("chat-1")

	if s.Len() != 0 {
		t.Errorf("Len after reset = %d, want 0", s.Len())
	}
	if st.Len() != 1 {
		t.Error("reset must keep the session in the store")
	}

	// Reset on an unknown chat is a no-op.
	st.Reset("never-seen")
	if st.Len() != 1 {
		t.Error("reset of unknown chat must not change the store")
	}
}

func TestSessionStoreGetNotFound(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 10, MaxContextMessages: 5, TTL: time.Hour})
	_, err := st.Get("missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	st, _ := newTestStore(SessionStoreOptions{MaxSessions: 50, MaxContextMessages: 10, TTL: time.Hour})

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			chatID := fmt.Sprintf("chat-%d", i%5)
			for j := 0; j < 100; j++ {
				s := st.GetOrCreate(chatID)
				s.Append(domain.Message{Role: domain.RoleUser, Content: "x"})
				s.Messages()
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if st.Len() != 5 {
		t.Errorf("Len = %d, want 5", st.Len())
	}
}
