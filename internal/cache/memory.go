package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value []byte
	exp   time.Time
}

// Memory is an in-process TTL cache. It is the default backend; a process
// lives for one invocation (agent) or one session (interactive), so entries
// rarely outlive the map.
type Memory struct {
	mu sync.RWMutex
	m  map[string]entry

	// now is swappable for tests.
	now func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]entry), now: time.Now}
}

// Get returns the cached value for key if present and fresh. Expired entries
// are dropped on access.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl means the entry
// never expires.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry{value: value, exp: exp}
	c.mu.Unlock()
	return nil
}
