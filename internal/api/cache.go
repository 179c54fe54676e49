package api

import (
	"sync"
	"sync/atomic"
)

// RequestCache memoizes response bodies for the lifetime of one process run.
// Entries never expire.
type RequestCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	hits    atomic.Int64
}

func NewRequestCache() *RequestCache {
	return &RequestCache{entries: make(map[string][]byte)}
}

func (c *RequestCache) Lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	body, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	}
	return body, ok
}

func (c *RequestCache) Store(key string, body []byte) {
	stored := make([]byte, len(body))
	copy(stored, body)

	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
}

func (c *RequestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RequestCache) Hits() int64 {
	return c.hits.Load()
}

func cacheKey(method, url string) string {
	return method + " " + url
}
