package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LockerFactory creates lockers based on configuration
type LockerFactory struct {
	redisConfig    config.RedisConfig
	lockConfig     config.LockConfig
	logger         *zap.Logger
	allowInProcess bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInProcessFallback controls whether to fall back to an in-process
// KeyedMutex when Redis is unavailable. Default is true.
func WithInProcessFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInProcess = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:    redisCfg,
		lockConfig:     lockCfg,
		logger:         zap.NewNop(),
		allowInProcess: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLocker creates the configured locker. When distributed locking is
// requested and Redis is unreachable, the factory falls back to an
// in-process KeyedMutex if allowed, otherwise fails.
func (f *LockerFactory) CreateLocker() (shared.Locker, error) {
	if !f.lockConfig.Distributed {
		f.logger.Info("using in-process movement locks")
		return NewKeyedMutex(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if !f.allowInProcess {
			return nil, fmt.Errorf("failed to connect to Redis for distributed locks: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-process movement locks",
			zap.Error(err))
		return NewKeyedMutex(), nil
	}

	f.logger.Info("using Redis movement locks",
		zap.String("addr", client.Options().Addr),
		zap.Duration("ttl", f.lockConfig.TTL))

	return NewRedisLocker(client,
		WithTTL(f.lockConfig.TTL),
		WithMaxWait(f.lockConfig.MaxWait),
		WithLockerLogger(f.logger),
	), nil
}
