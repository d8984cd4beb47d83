package tradeparser

import (
	"sync"
	"time"
)

type cacheEntry struct {
	outcome    *TradeOutcome
	insertedAt time.Time
}

// Cache memoizes signature → outcome. Eviction is oldest-inserted-first when
// capacity is exceeded; entries past the TTL are treated as missing on read.
// Values are copied on the way in and out.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]cacheEntry
	order    []string

	now func() time.Time
}

// NewCache returns a cache with the given capacity and TTL. A capacity of
// zero disables storage entirely.
func NewCache(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry, capacity),
		now:      time.Now,
	}
}

// Get returns a copy of the cached outcome, or false on a miss or an expired
// entry. Expired entries are dropped lazily.
func (c *Cache) Get(signature string) (*TradeOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[signature]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.insertedAt) > c.ttl {
		delete(c.entries, signature)
		// Drop the order slot too, or a re-insert of the same signature
		// would leave a stale duplicate at the front and the next capacity
		// eviction would remove the wrong entry.
		c.dropFromOrderLocked(signature)
		return nil, false
	}
	return entry.outcome.Clone(), true
}

// Put stores a copy of the outcome, evicting the oldest insertion when full.
func (c *Cache) Put(signature string, outcome *TradeOutcome) {
	if c.capacity <= 0 || outcome == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[signature]; !exists {
		for len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
		c.order = append(c.order, signature)
	}
	c.entries[signature] = cacheEntry{outcome: outcome.Clone(), insertedAt: c.now()}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *Cache) dropFromOrderLocked(signature string) {
	for i, s := range c.order {
		if s == signature {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
