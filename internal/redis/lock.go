package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired means another holder owns the key right now.
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockUnavailable means Redis could not be asked for the key at all.
	ErrLockUnavailable = errors.New("lock backend unavailable")
)

// Locker serializes writers that must not interleave across API replicas.
// The appointment service takes one per slot ("slot:<doctor>:<date>:<time>")
// around create and reschedule, and a Vault takes one on its session key so
// a pending booking is submitted once even when two tabs complete it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker holds one "lock:<key>" string per critical section. The
// value is a per-call token so only the holder can release it.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

// WithLock runs fn while holding "lock:<key>". It does not wait: a held lock
// returns ErrLockNotAcquired immediately. fn's context expires with the lock.
func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := "lock:" + key
	token, err := l.acquire(ctx, lockKey)
	if err != nil {
		return fmt.Errorf("%w: acquire %s: %v", ErrLockUnavailable, key, err)
	}
	if token == "" {
		return ErrLockNotAcquired
	}
	defer func() { _ = l.release(context.WithoutCancel(ctx), lockKey, token) }()

	held, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(held)
}

// acquire returns the holder token, or "" when someone else holds lockKey.
func (l *redisLocker) acquire(ctx context.Context, lockKey string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

// releaseIfHeld deletes KEYS[1] only while it still carries our token, so a
// lock that expired and was taken over is left alone.
var releaseIfHeld = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) release(ctx context.Context, lockKey, token string) error {
	if err := releaseIfHeld.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", lockKey, err)
	}
	return nil
}
