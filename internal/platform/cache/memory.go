package cache

import (
	"context"
	"sync"
	"time"

	"codearena/internal/domain/model"
)

type memoryEntry struct {
	verdict   *model.Verdict
	expiresAt time.Time
}

// MemoryVerdictCache is the in-process fallback used when Redis is not
// configured. A janitor goroutine sweeps expired entries periodically
// so memory stays bounded under load; Get also checks expiry so a
// stale entry is never returned between sweeps.
type MemoryVerdictCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryVerdictCache(ttl, sweepInterval time.Duration) *MemoryVerdictCache {
	c := &MemoryVerdictCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.janitor(sweepInterval)
	return c
}

func (c *MemoryVerdictCache) Get(_ context.Context, key string) (*model.Verdict, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.verdict, true, nil
}

func (c *MemoryVerdictCache) Set(_ context.Context, key string, verdict *model.Verdict) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{verdict: verdict, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryVerdictCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Stop terminates the janitor goroutine. Safe to call more than once.
func (c *MemoryVerdictCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryVerdictCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
