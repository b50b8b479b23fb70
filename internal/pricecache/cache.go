package pricecache

import (
	"sync"
	"walletpnl/internal/domain"
)

const (
	DefaultMaxEntries = 1000
	DefaultEvictCount = 500
)

// Cache is the process-scoped table of computed price analyses, keyed by domain.AnalysisKey.
// When full, the oldest evictCount entries (insertion order) are dropped in one pass before the new entry is added.
// Safe for concurrent use.
type Cache struct {
	maxEntries int
	evictCount int

	mu      sync.RWMutex
	entries map[string]*domain.PriceAnalysis
	order   []string // insertion order, oldest first
}

func New(maxEntries, evictCount int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if evictCount <= 0 || evictCount > maxEntries {
		evictCount = min(DefaultEvictCount, maxEntries)
	}

	return &Cache{
		maxEntries: maxEntries,
		evictCount: evictCount,
		entries:    make(map[string]*domain.PriceAnalysis, maxEntries),
		order:      make([]string, 0, maxEntries),
	}
}

func (c *Cache) Get(key string) (*domain.PriceAnalysis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.entries[key]
	return a, ok
}

// Set stores a; absence of data (nil) is never cached so the next request retries
func (c *Cache) Set(key string, a *domain.PriceAnalysis) {
	if a == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// existing key keeps its insertion slot
	if _, ok := c.entries[key]; ok {
		c.entries[key] = a
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = a
	c.order = append(c.order, key)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// under c.mu
func (c *Cache) evictOldest() {
	n := min(c.evictCount, len(c.order))
	for _, k := range c.order[:n] {
		delete(c.entries, k)
	}

	rest := make([]string, len(c.order)-n, c.maxEntries)
	copy(rest, c.order[n:])
	c.order = rest
}
