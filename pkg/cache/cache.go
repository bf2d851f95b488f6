// Package cache provides a TTL key-value store for judge verdict reuse,
// with a Redis implementation and an in-memory fallback.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/copperline/arbiter/pkg/lifecycle"
)

// System is the verdict cache collaborator. Entries are keyed by content hash,
// so stale reads are harmless; expiry is the only invalidation.
type System interface {
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Get returns the value stored at key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value at key with the given time-to-live.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// New creates a cache system from the given configuration. A configured Redis
// address selects the Redis implementation; otherwise entries live in process
// memory, which is sufficient for local development and tests.
func New(cfg *Config, logger *slog.Logger) System {
	if cfg.Addr != "" {
		return NewRedis(cfg, logger)
	}
	return NewMemory(logger)
}
