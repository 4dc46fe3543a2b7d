package pipeline

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// DefaultCacheTTL is how long a fetched result is served from memory.
const DefaultCacheTTL = 5 * time.Minute

const defaultCacheEntries = 256

// Cache is a concurrent-safe LRU cache of fetch results with TTL expiration.
// Writes are last-write-wins. Cached results are shared and must be treated as
// read-only.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

type cacheEntry struct {
	result    *model.FetchResult
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewCache creates a Cache. A non-positive ttl disables caching: every Get
// misses and Put is a no-op. A non-positive maxEntries uses a default.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		nowFunc:    time.Now,
	}
}

// CacheKey builds the cache key for a query. Text fields are compared
// case-insensitively.
func CacheKey(q Query) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Text)),
		strings.ToLower(strings.TrimSpace(q.Target)),
		string(q.Mode),
		strings.ToLower(strings.TrimSpace(q.Location)),
	}, "|")
}

// Get returns the cached result for key, or nil on miss or expiration.
func (c *Cache) Get(key string) *model.FetchResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	if c.nowFunc().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.result
}

// Put stores result under key, evicting the oldest entry if at capacity.
func (c *Cache) Put(key string, result *model.FetchResult) {
	if c.ttl <= 0 || result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeFromOrder(key)
	} else {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}

	c.entries[key] = &cacheEntry{result: result, createdAt: c.nowFunc()}
	c.order = append(c.order, key)
}

// InvalidateOnReload drops every entry. The HTTP layer calls it when the
// dashboard reloads so a fresh page never shows stale results.
func (c *Cache) InvalidateOnReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
