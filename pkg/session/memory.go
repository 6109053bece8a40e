package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// InMemoryStore implements Store for single-node development and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clockwork.Clock
	done     chan struct{}
	once     sync.Once
}

func NewInMemoryStore(clock clockwork.Clock) *InMemoryStore {
	store := &InMemoryStore{
		sessions: make(map[string]*Session),
		clock:    clock,
		done:     make(chan struct{}),
	}
	go store.cleanupRoutine()
	return store
}

func (s *InMemoryStore) Create(_ context.Context, userID, provider string, ttl time.Duration) (*Session, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess

	return sess, nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if s.clock.Now().After(sess.ExpiresAt) {
		delete(s.sessions, sessionID)
		return nil, ErrSessionExpired
	}

	copied := *sess
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close stops the expiry sweeper.
func (s *InMemoryStore) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *InMemoryStore) cleanupRoutine() {
	ticker := s.clock.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *InMemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
