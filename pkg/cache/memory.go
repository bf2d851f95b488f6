package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/copperline/arbiter/pkg/lifecycle"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  *slog.Logger
	now     func() time.Time
}

// NewMemory creates a process-local cache. Expired entries are reaped lazily
// on read and by a periodic sweep registered during Start.
func NewMemory(logger *slog.Logger) System {
	return &memoryCache{
		entries: make(map[string]entry),
		logger:  logger.With("system", "cache"),
		now:     time.Now,
	}
}

func (m *memoryCache) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("using in-memory cache")

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		m.mu.Lock()
		m.entries = make(map[string]entry)
		m.mu.Unlock()
	})

	go m.sweep(lc.Context())
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

func (m *memoryCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for key, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
