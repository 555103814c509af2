package server

import (
	"sort"
	"sync"
)

// SessionState is a point-in-time snapshot of one session, safe to hand out
// after the session itself is gone. Disconnect notifications and Sessions
// listings are built from these.
type SessionState struct {
	ID               uint64 // Server-assigned session identifier
	RemoteAddress    string // Client network address
	ConnectedAt      int64  // Unix timestamp of connection open
	Identified       bool   // Whether the Identify handshake completed
	IncomingMessages uint64 // Messages received from the client
	OutgoingMessages uint64 // Messages sent to the client
}

// sessionTable is the registry of live sessions. One mutex guards the map;
// operations that touch individual sessions (broadcast delivery, shutdown
// kicks) run their callbacks while the table lock is held so a session never
// disappears mid-iteration.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[uint64]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		sessions: make(map[uint64]*Session),
	}
}

// Add registers a session under its id.
func (t *sessionTable) Add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID()] = s
}

// Get looks up a session by id.
func (t *sessionTable) Get(id uint64) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Remove deletes a session and returns it, reporting whether it was present.
func (t *sessionTable) Remove(id uint64) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	return s, ok
}

// ForEach calls fn for every session while holding the table lock. The
// callback must not call back into the table.
func (t *sessionTable) ForEach(fn func(*Session)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		fn(s)
	}
}

// Count returns the number of live sessions.
func (t *sessionTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Snapshot returns the state of every session, ordered by id.
func (t *sessionTable) Snapshot() []SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make([]SessionState, 0, len(t.sessions))
	for _, s := range t.sessions {
		states = append(states, s.state())
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].ID < states[j].ID
	})
	return states
}
