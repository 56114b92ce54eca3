package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"supportkb/internal/domain"
)

// QueryCache remembers nearest-neighbor lists per (query, k) for one corpus
// generation. Entries from an older generation are never returned.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	neighbors  []domain.Neighbor
	timestamp  time.Time
	generation uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, topK int) string {
	data := make([]byte, 8, 8+len(query))
	binary.BigEndian.PutUint64(data, uint64(topK))
	data = append(data, query...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns a copy of the cached neighbors for query and topK in generation gen.
func (c *QueryCache) Get(query string, topK int, gen uint64) ([]domain.Neighbor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if entry.generation != gen || c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return append([]domain.Neighbor(nil), entry.neighbors...), true
}

func (c *QueryCache) Put(query string, topK int, gen uint64, neighbors []domain.Neighbor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry := &cacheEntry{
		neighbors:  append([]domain.Neighbor(nil), neighbors...),
		timestamp:  c.now(),
		generation: gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
