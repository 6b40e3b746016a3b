package cache

import (
	"context"
	"sync"
	"time"

	"BreakoutScanner/internal/model"
)

type entry struct {
	bars []model.OHLCV
	exp  time.Time
}

// MemoryCache is a process-local TTL cache. When full, expired entries are
// dropped first, then the entry closest to expiry.
type MemoryCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries series (0 = 10000).
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryCache{m: make(map[string]entry), maxEntries: maxEntries, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]model.OHLCV, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, ErrMiss
	}
	out := make([]model.OHLCV, len(e.bars))
	copy(out, e.bars)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, bars []model.OHLCV, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	stored := make([]model.OHLCV, len(bars))
	copy(stored, bars)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.maxEntries {
		c.evict()
	}
	c.m[key] = entry{bars: stored, exp: exp}
	return nil
}

// evict must be called with mu held.
func (c *MemoryCache) evict() {
	now := c.now()
	var victim string
	var soonest time.Time
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
			continue
		}
		if victim == "" || (!e.exp.IsZero() && (soonest.IsZero() || e.exp.Before(soonest))) {
			victim, soonest = k, e.exp
		}
	}
	if len(c.m) >= c.maxEntries && victim != "" {
		delete(c.m, victim)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *MemoryCache) Close() error { return nil }
