package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis so every API instance sees the same logins.
type RedisStore struct {
	client *redis.Client
	clock  clockwork.Clock
}

func NewRedisStore(client *redis.Client, clock clockwork.Clock) *RedisStore {
	return &RedisStore{client: client, clock: clock}
}

func (s *RedisStore) Create(ctx context.Context, userID, provider string, ttl time.Duration) (*Session, error) {
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

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, payload, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.clock.Now().After(sess.ExpiresAt) {
		_ = s.Delete(ctx, sessionID)
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}
