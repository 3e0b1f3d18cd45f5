// Package session tracks open documents. Each session owns one host
// document and serializes every operation against it: the host's
// positional indices are shared mutable state and no true mutual
// exclusion exists on the host side, so the session mutex is the only
// writer gate.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docnav/internal/host"
)

// Session is one open document.
type Session struct {
	mu sync.Mutex

	ID       string    `json:"session_id"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	ReadOnly bool      `json:"read_only"`
	OpenedAt time.Time `json:"opened_at"`

	lastUsed time.Time
	doc      host.Document
}

// Do runs fn with exclusive access to the session's document. Document
// operations must never run concurrently.
func (s *Session) Do(fn func(doc host.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return fn(s.doc)
}

// Touch refreshes the idle timer.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// Snapshot is a JSON-safe copy of session metadata.
type Snapshot struct {
	ID       string    `json:"session_id"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	ReadOnly bool      `json:"read_only"`
	OpenedAt time.Time `json:"opened_at"`
}

// Snapshot returns a copy of the session metadata.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:       s.ID,
		Filename: s.Filename,
		Title:    s.Title,
		ReadOnly: s.ReadOnly,
		OpenedAt: s.OpenedAt,
	}
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
}

// NewStore creates a registry evicting sessions idle longer than ttl.
// max bounds the number of concurrently open sessions (0 = unlimited).
func NewStore(ttl time.Duration, max int) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
	}
}

// Open registers a new session for doc and returns it.
func (st *Store) Open(filename string, doc host.Document) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, fmt.Errorf("too many open sessions (%d)", st.max)
	}
	now := time.Now()
	s := &Session{
		ID:       NewID(),
		Filename: filename,
		Title:    doc.Title(),
		ReadOnly: doc.ReadOnly(),
		OpenedAt: now,
		lastUsed: now,
		doc:      doc,
	}
	st.sessions[s.ID] = s
	return s, nil
}

// Get returns a session by ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// Close removes a session. It reports whether the session existed.
func (st *Store) Close(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// List returns snapshots of all open sessions.
func (st *Store) List() []Snapshot {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Cleanup removes sessions idle past the TTL.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed)
		s.mu.Unlock()
		if idle > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
