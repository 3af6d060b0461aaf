package connector

import (
	"encoding/json"
	"sync"
	"time"
)

// maxCachedResources bounds the resource cache before expired entries are
// swept on insert.
const maxCachedResources = 256

// cacheEntry holds one fetched JSON resource.
type cacheEntry struct {
	raw       json.RawMessage
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// resourceCache is a thread-safe in-memory cache of JSON resources keyed by
// URI. Entries expire after a fixed TTL.
type resourceCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newResourceCache(ttl time.Duration) *resourceCache {
	return &resourceCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// get returns a copy of the cached document for uri.
func (c *resourceCache) get(uri string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[uri]
	if !ok || e.expired() {
		return nil, false
	}
	return append(json.RawMessage(nil), e.raw...), true
}

func (c *resourceCache) set(uri string, raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCachedResources {
		c.evictLocked()
	}
	c.entries[uri] = &cacheEntry{
		raw:       append(json.RawMessage(nil), raw...),
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *resourceCache) invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, uri)
}

// evict removes all expired entries and reports how many went.
func (c *resourceCache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

func (c *resourceCache) evictLocked() int {
	n := 0
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len returns the number of cached entries, expired ones included.
func (c *resourceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
