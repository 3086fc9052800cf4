package wiki

import (
	"fmt"
	"sync"
	"time"
)

// responseCache absorbs bursty repeat calls for the same (query, cursor)
// pair. Entries expire independently and are never served past expiry.
type responseCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func cacheKey(q Query, cursor string) string {
	return fmt.Sprintf("%s|%s|%s", q.Mode, q.Param, cursor)
}

func (c *responseCache) get(key string) (Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Page{}, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return Page{}, false
	}
	return e.page, true
}

func (c *responseCache) put(key string, page Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{page: page, expires: time.Now().Add(c.ttl)}
}
