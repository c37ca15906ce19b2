package dialogue

import (
	"fmt"
	"sync"
	"time"
)

type cacheKey struct {
	agentID         string
	interactionType string
	phase           string
}

type cacheEntry struct {
	text      string
	createdAt time.Time
}

// Cache memoizes generated lines keyed by (agent, interaction type, phase).
// Entries expire by TTL checked at read time; a stale entry is ignored and
// overwritten by the next Put. The key space is small and finite, so there
// is no size cap.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
	now     func() time.Time
}

type CacheStats struct {
	Entries int      `json:"entries"`
	Keys    []string `json:"keys"`
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: map[cacheKey]cacheEntry{},
		now:     time.Now,
	}
}

// SetNow replaces the clock, for tests.
func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) Get(agentID, interactionType, phase string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{agentID, interactionType, phase}]
	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return "", false
	}
	return e.text, true
}

func (c *Cache) Put(agentID, interactionType, phase, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{agentID, interactionType, phase}] = cacheEntry{text: text, createdAt: c.now()}
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, fmt.Sprintf("%s:%s:%s", k.agentID, k.interactionType, k.phase))
	}
	return CacheStats{Entries: len(c.entries), Keys: keys}
}
