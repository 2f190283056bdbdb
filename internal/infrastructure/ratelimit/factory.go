package ratelimit

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

// Store is a CounterStore that owns resources released by Close.
type Store interface {
	CounterStore
	io.Closer
}

// StoreFactory creates counter stores based on configuration
type StoreFactory struct {
	cfg                   config.RateLimitConfig
	redisConfig           config.RedisConfig
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
// the in-memory store instead of failing startup
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

func NewStoreFactory(cfg config.RateLimitConfig, redisCfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cfg:                   cfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cfg.FallbackToMemory,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store named by rate_limit.store
func (f *StoreFactory) CreateStore() (Store, error) {
	switch f.cfg.Store {
	case "", "memory":
		f.logger.Info("using in-memory rate limit store")
		return f.createMemoryStore(), nil
	case "redis":
		store, err := NewRedisStore(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis rate limit store", zap.String("addr", f.redisConfig.Addr()))
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for rate limiting but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory rate limit store. "+
			"Quotas will not be shared between instances.",
			zap.Error(err),
		)
		return f.createMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", f.cfg.Store)
	}
}

func (f *StoreFactory) createMemoryStore() *MemoryStore {
	store := NewMemoryStore()
	store.StartCleanup(2 * f.cfg.Window)
	return store
}
