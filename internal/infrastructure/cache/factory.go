package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// StoreFactory creates the idempotency store the service locks and
// deduplicates with
type StoreFactory struct {
	cfg                   RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// the in-memory store. Enabled by default.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis backed store and its client, or the in-memory
// store and a nil client when Redis is unreachable and fallback is allowed.
func (f *StoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, *redis.Client, error) {
	client, err := NewRedisClient(ctx, f.cfg)
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("host", f.cfg.Host))
		return NewRedisIdempotencyStore(client, DefaultKeyPrefix), client, nil
	}
	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory store; submit locks are per instance",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil, nil
}
