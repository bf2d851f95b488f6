package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/copperline/arbiter/pkg/lifecycle"
)

type redisCache struct {
	client      *redis.Client
	logger      *slog.Logger
	connTimeout time.Duration
}

// NewRedis creates a Redis-backed cache system. The client is constructed
// immediately but the connection is not verified until Start.
func NewRedis(cfg *Config, logger *slog.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &redisCache{
		client:      client,
		logger:      logger.With("system", "cache"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}
}

func (r *redisCache) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting cache connection")

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), r.connTimeout)
		defer cancel()

		if err := r.client.Ping(pingCtx).Err(); err != nil {
			r.logger.Error("cache ping failed", "error", err)
			return
		}

		r.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := r.client.Close(); err != nil {
			r.logger.Error("cache close failed", "error", err)
			return
		}

		r.logger.Info("cache connection closed")
	})

	return nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *redisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}
