package survey

import (
	"sync"
	"time"
)

// Session is the in-memory state for one in-progress call. Fields are only
// mutated by the controller while the session's webhook event is being
// handled; Twilio delivers events for a single call sequentially.
type Session struct {
	CallID string
	// Index is the position into the catalog. It never decreases and is
	// left unchanged by follow-ups, misses and collaborator errors.
	Index int
	// Retries counts consecutive unresolved attempts at the current
	// question. Reset on accept and on force-advance.
	Retries int
	// LastRecordingID is the RecordingSid of the most recently processed
	// answer, used to absorb duplicate webhook deliveries.
	LastRecordingID string
	// StartedAt supports idle eviction.
	StartedAt time.Time
}

// SessionStore is a concurrency-safe table of active call sessions keyed by
// call id. Sessions for different calls are processed in parallel; the table
// itself is the only shared mutable state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session table.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create inserts a new session for callID, or returns the existing one when
// a duplicate call-connected event arrives for a live call.
func (s *SessionStore) Create(callID string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[callID]; ok {
		return existing, false
	}
	sess = &Session{CallID: callID, StartedAt: time.Now()}
	s.sessions[callID] = sess
	return sess, true
}

// Get looks up the session for callID.
func (s *SessionStore) Get(callID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	return sess, ok
}

// Remove evicts the session for callID, if present.
func (s *SessionStore) Remove(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
}

// Len reports the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes sessions older than maxAge and returns how many were
// evicted. Covers calls that hung up without reaching the final question.
func (s *SessionStore) EvictIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.StartedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
