package rs

import (
	"encoding/json"
	"log"
	"sync"
)

////////////////
//
// (memory cache)
//

// memory cache; used when no cache directory is configured,
// or when persistent storage is unavailable
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	verbose bool
}

// Get deserializes the entry at `key` into `out`.
func (c *memCache) Get(key string, out any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "memCache - reading entry with key: %s", key)

	bytes, exists := c.entries[key]
	if !exists {
		return false
	}
	if err := json.Unmarshal(bytes, out); err != nil {
		// corrupt entries behave like absent ones
		log.Printf("failed to deserialize cached entry with key '%s': %s", key, err)
		return false
	}
	return true
}

// Set saves given value to the cache.
func (c *memCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "memCache - writing entry with key: %s", key)

	bytes, err := json.Marshal(value)
	if err != nil {
		log.Printf("failed to serialize cache entry with key '%s': %s", key, err)
		return
	}
	c.entries[key] = bytes
}

// Remove deletes the entry at `key`.
func (c *memCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "memCache - removing entry with key: %s", key)

	delete(c.entries, key)
}

// SetVerbose sets the verbosity of cache.
func (c *memCache) SetVerbose(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verbose = v
}

// return a new memory cache
func newMemCache() *memCache {
	return &memCache{
		entries: map[string][]byte{},
	}
}
