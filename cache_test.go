package rs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// both cache implementations share the same contract
func TestCacheRoundTrip(t *testing.T) {
	for name, cache := range map[string]LocalCache{
		"memCache":  newMemCache(),
		"fileCache": newFileCache(t.TempDir()),
	} {
		var absent []string
		if cache.Get(cacheKeyBlockedCategories, &absent) {
			t.Errorf("%s: fresh cache reported an entry", name)
		}

		cache.Set(cacheKeyBlockedCategories, []string{"Ads", "Politics"})
		var categories []string
		if !cache.Get(cacheKeyBlockedCategories, &categories) {
			t.Fatalf("%s: entry missing after set", name)
		}
		if diff := cmp.Diff([]string{"Ads", "Politics"}, categories); diff != "" {
			t.Errorf("%s: unexpected entry (-want +got):\n%s", name, diff)
		}

		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		cache.Set(cacheKeyThisLoad, now)
		var at time.Time
		if !cache.Get(cacheKeyThisLoad, &at) || !at.Equal(now) {
			t.Errorf("%s: timestamp did not round-trip: %v", name, at)
		}

		cache.Remove(cacheKeyBlockedCategories)
		if cache.Get(cacheKeyBlockedCategories, &categories) {
			t.Errorf("%s: entry present after remove", name)
		}
		cache.Remove(cacheKeyBlockedCategories) // removing twice is fine
	}
}

// a corrupt entry behaves exactly like an absent one
func TestFileCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	cache := newFileCache(dir)

	path := filepath.Join(dir, cacheKeyBlockedCategories+".json")
	if err := os.WriteFile(path, []byte(`{not json!`), 0o600); err != nil {
		t.Fatal(err)
	}

	var categories []string
	if cache.Get(cacheKeyBlockedCategories, &categories) {
		t.Error("corrupt entry reported as present")
	}

	// and it can be overwritten as usual
	cache.Set(cacheKeyBlockedCategories, []string{"Ads"})
	if !cache.Get(cacheKeyBlockedCategories, &categories) {
		t.Error("entry missing after overwriting a corrupt one")
	}
}

// storage failures never propagate to callers
func TestFileCacheUnavailableStorage(t *testing.T) {
	// a directory path that cannot be created
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("file, not a dir"), 0o600); err != nil {
		t.Fatal(err)
	}
	cache := newFileCache(filepath.Join(blocker, "nested"))

	cache.Set(cacheKeyBlockedCategories, []string{"Ads"}) // must not panic
	var categories []string
	if cache.Get(cacheKeyBlockedCategories, &categories) {
		t.Error("entry reported present despite unavailable storage")
	}
	cache.Remove(cacheKeyBlockedCategories) // must not panic
}

// values that cannot be serialized are dropped silently
func TestMemCacheUnserializableValue(t *testing.T) {
	cache := newMemCache()
	cache.Set(cacheKeyBlockedCategories, func() {}) // must not panic

	var categories []string
	if cache.Get(cacheKeyBlockedCategories, &categories) {
		t.Error("unserializable value reported as present")
	}
}
