package quiz

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
var ErrSessionNotFound = errors.New("quiz session not found")

// SessionStore holds live quiz sessions.
type SessionStore interface {
	Save(s *Session) error
	// Get returns the session only when it belongs to learnerID.
	Get(id, learnerID string) (*Session, error)
	Delete(id string) error
}

// MemoryStore is an in-memory SessionStore with a fixed session lifetime.
type MemoryStore struct {
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemoryStore creates a session store. A zero ttl keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Get(id, learnerID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.LearnerID != learnerID || s.expired(sess) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.CreatedAt) > s.ttl
}

func (s *MemoryStore) sweepLocked() {
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
		}
	}
}
