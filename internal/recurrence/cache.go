package recurrence

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// Cache memoises Decode per distinct rule string. Decode is pure, so a cached
// Config is always equal to a fresh one. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, Config]
}

// NewCache creates a Cache holding at most size rules (default 256 when
// size <= 0).
func NewCache(size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, Config](size)
	if err != nil {
		// Only returned for non-positive sizes, which are excluded above.
		panic(err)
	}
	return &Cache{entries: entries}
}

// Decode returns the decoded Config for rule, decoding on first use.
func (c *Cache) Decode(rule string) Config {
	if cfg, ok := c.entries.Get(rule); ok {
		return cloneConfig(cfg)
	}
	cfg := Decode(rule)
	c.entries.Add(rule, cfg)
	return cloneConfig(cfg)
}

// Len reports how many rules are cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// cloneConfig keeps callers from mutating the cached weekday slice.
func cloneConfig(cfg Config) Config {
	if cfg.DaysOfWeek != nil {
		cfg.DaysOfWeek = append(cfg.DaysOfWeek[:0:0], cfg.DaysOfWeek...)
	}
	return cfg
}
