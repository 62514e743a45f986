package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only if it still holds our token, so an
// expired lock that another holder re-acquired is never released by us.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker implements Locker on Redis with SET NX EX. Suitable for
// distributed deployments where multiple instances serialize on the same
// keys.
type RedisLocker struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	retryDelay time.Duration
	maxWait    time.Duration
	logger     *zap.Logger
}

// RedisLockerOption is a functional option for configuring the locker
type RedisLockerOption func(*RedisLocker)

// WithTTL sets how long an acquired lock lives before Redis expires it
func WithTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.ttl = ttl
	}
}

// WithMaxWait sets how long acquisition retries before giving up
func WithMaxWait(maxWait time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.maxWait = maxWait
	}
}

// WithLockerLogger sets the logger
func WithLockerLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a RedisLocker with an existing client
func NewRedisLocker(client *redis.Client, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		keyPrefix:  "lock:",
		ttl:        30 * time.Second,
		retryDelay: 50 * time.Millisecond,
		maxWait:    10 * time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithLock acquires the key, runs fn, and releases. Acquisition polls with a
// fixed delay until maxWait elapses, then fails with a concurrency error.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	if err := l.acquire(ctx, redisKey, token); err != nil {
		return err
	}
	defer l.release(redisKey, token)

	return fn(ctx)
}

func (l *RedisLocker) acquire(ctx context.Context, redisKey, token string) error {
	deadline := time.Now().Add(l.maxWait)
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", redisKey, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			l.logger.Warn("lock acquisition timed out", zap.String("key", redisKey))
			return shared.NewConcurrencyError("LOCK_TIMEOUT", "Timed out waiting for lock")
		}

		select {
		case <-ctx.Done():
			return shared.NewConcurrencyError("LOCK_CANCELLED", "Context cancelled while waiting for lock")
		case <-time.After(l.retryDelay):
		}
	}
}

// release runs on a background context so a cancelled caller still frees the
// lock instead of leaving it to expire.
func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.client.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("lock release failed, key will expire via TTL",
			zap.String("key", redisKey),
			zap.Error(err))
	}
}

var _ shared.Locker = (*RedisLocker)(nil)
