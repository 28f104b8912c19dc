package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionSlot is a single named value scoped to one browser session. It
// backs the deferred booking vault when the client state lives server side.
type SessionSlot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewSessionSlot(client *redis.Client, name, sessionID string, ttl time.Duration) *SessionSlot {
	return &SessionSlot{
		client: client,
		key:    fmt.Sprintf("session:%s:%s", sessionID, name),
		ttl:    ttl,
	}
}

// Key is the Redis key holding the slot, also usable as a lock key.
func (s *SessionSlot) Key() string { return s.key }

// Load returns the stored bytes, or nil when the slot is empty.
func (s *SessionSlot) Load(ctx context.Context) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	return b, nil
}

// Store overwrites the slot and refreshes its TTL.
func (s *SessionSlot) Store(ctx context.Context, b []byte) error {
	if err := s.client.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store %s: %w", s.key, err)
	}
	return nil
}

func (s *SessionSlot) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}
