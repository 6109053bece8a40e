package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateExpired  = errors.New("state expired")
)

// StateStore remembers the nonce issued with each authorization redirect
// until the callback consumes it.
type StateStore struct {
	mu    sync.Mutex
	data  map[string]stateData
	clock clockwork.Clock
	done  chan struct{}
	once  sync.Once
}

type stateData struct {
	nonce     string
	expiresAt time.Time
}

func NewStateStore(clock clockwork.Clock) *StateStore {
	s := &StateStore{
		data:  make(map[string]stateData),
		clock: clock,
		done:  make(chan struct{}),
	}
	go s.cleanupRoutine()
	return s
}

func (s *StateStore) Save(state, nonce string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state] = stateData{nonce: nonce, expiresAt: s.clock.Now().Add(ttl)}
}

// Take returns the nonce for state and forgets it. A state is good for one callback.
func (s *StateStore) Take(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.data[state]
	if !exists {
		return "", ErrStateNotFound
	}
	delete(s.data, state)

	if s.clock.Now().After(data.expiresAt) {
		return "", ErrStateExpired
	}
	return data.nonce, nil
}

func (s *StateStore) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *StateStore) cleanupRoutine() {
	ticker := s.clock.NewTicker(5 * time.Minute)
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

func (s *StateStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for state, data := range s.data {
		if now.After(data.expiresAt) {
			delete(s.data, state)
		}
	}
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
