package services

import (
	"sync"
	"time"
)

// Clock is injected so expiry is testable without wall-clock sleeps.
type Clock func() time.Time

type promptEntry struct {
	value   string
	expires time.Time
}

// PromptCache memoizes prompt/template lookups with a TTL. It replaces
// the ambient-singleton template cache of the original system with an
// explicit object constructed once and passed by reference.
type PromptCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]promptEntry
}

func NewPromptCache(ttl time.Duration, clock Clock) *PromptCache {
	if clock == nil {
		clock = time.Now
	}
	return &PromptCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]promptEntry),
	}
}

// Get returns the cached value for key, invoking load on a miss or
// after expiry. Load errors are not cached.
func (c *PromptCache) Get(key string, load func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if entry, ok := c.entries[key]; ok && now.Before(entry.expires) {
		return entry.value, nil
	}

	value, err := load()
	if err != nil {
		return "", err
	}
	c.entries[key] = promptEntry{value: value, expires: now.Add(c.ttl)}
	return value, nil
}

func (c *PromptCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
