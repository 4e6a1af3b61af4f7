package detect

import "sync"

const cacheLimit = 256

type cacheKey struct {
	path  string
	size  int64
	mtime int64
}

// Cache is a bounded, process-wide memoisation of Detect results, keyed on
// (resolved path, file size, mtime) rather than file contents (spec.md
// §4.6, Design Note "detector cache"). On overflow it clears entirely — the
// cheap eviction policy the spec calls for instead of an LRU.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]Result
	hits    int
	misses  int
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Result)}
}

// DetectCached runs Detect(path), memoising by (path, size, mtime). Any OS
// error stat'ing the file skips caching entirely and falls through to a
// direct, uncached Detect call.
func (c *Cache) DetectCached(path string) (Result, error) {
	key, err := statKey(path)
	if err != nil {
		return Detect(path)
	}

	c.mu.Lock()
	if r, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return r, nil
	}
	c.misses++
	c.mu.Unlock()

	r, err := Detect(path)
	if err != nil {
		return r, err
	}

	c.mu.Lock()
	if len(c.entries) >= cacheLimit {
		c.entries = make(map[cacheKey]Result)
	}
	c.entries[key] = r
	c.mu.Unlock()

	return r, nil
}

// Stats returns the current hit/miss counters (for tests and the doctor
// diagnostic).
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
