package rs

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

////////////////
//
// (file cache)
//

// file cache; one JSON file per key under `dir`
type fileCache struct {
	dir string

	mu      sync.Mutex
	verbose bool
}

// Get deserializes the entry at `key` into `out`.
func (c *fileCache) Get(key string, out any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "fileCache - reading entry with key: %s", key)

	bytes, err := os.ReadFile(c.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("failed to read cache entry with key '%s': %s", key, err)
		}
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
func (c *fileCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "fileCache - writing entry with key: %s", key)

	bytes, err := json.Marshal(value)
	if err != nil {
		log.Printf("failed to serialize cache entry with key '%s': %s", key, err)
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		log.Printf("failed to create cache directory '%s': %s", c.dir, err)
		return
	}
	if err := os.WriteFile(c.path(key), bytes, 0o600); err != nil {
		log.Printf("failed to write cache entry with key '%s': %s", key, err)
	}
}

// Remove deletes the entry at `key`.
func (c *fileCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v(c.verbose, "fileCache - removing entry with key: %s", key)

	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove cache entry with key '%s': %s", key, err)
	}
}

// SetVerbose sets the verbosity of cache.
func (c *fileCache) SetVerbose(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verbose = v
}

func (c *fileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// return a new file cache rooted at `dir`
func newFileCache(dir string) *fileCache {
	return &fileCache{
		dir: dir,
	}
}
