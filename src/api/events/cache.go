package events

import (
	"sync"
	"time"
)

// Cache is a process-local TTL cache used to suppress duplicate chain
// events. It is best effort: losing it only risks a duplicate insert.
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	expiry  map[string]time.Time
	hits    uint64
	misses  uint64
	stop    chan struct{}
	stopped bool
}

type CacheStats struct {
	Hits   uint64
	Misses uint64
	Keys   int
}

func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		ttl:    ttl,
		expiry: make(map[string]time.Time),
		stop:   make(chan struct{}),
	}

	// Evict expired entries periodically
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.cleanup()
			case <-c.stop:
				return
			}
		}
	}()

	return c
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, exp := range c.expiry {
		if now.After(exp) {
			delete(c.expiry, key)
		}
	}
}

// Get reports whether key is present and unexpired, and records a hit or
// miss either way.
func (c *Cache) Get(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp, ok := c.expiry[key]
	if ok && time.Now().After(exp) {
		delete(c.expiry, key)
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return ok
}

// Set inserts key with a fresh TTL.
func (c *Cache) Set(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiry[key] = time.Now().Add(c.ttl)
}

// Touch re-arms the TTL window for key from now.
func (c *Cache) Touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.expiry[key]; ok {
		c.expiry[key] = time.Now().Add(c.ttl)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.expiry)
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Keys: len(c.expiry)}
}

// Stop terminates the eviction goroutine. The cache remains usable.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
}
