package rs

// logical keys of the local cache
const (
	cacheKeyBlockedCategories = `blocked_categories`
	cacheKeyBlockedPhrases    = `blocked_phrases`
	cacheKeyPreviousLoad      = `previous_load`
	cacheKeyThisLoad          = `this_load`
)

// LocalCache is a small typed wrapper over persistent key/value storage.
//
// Values are serialized as JSON and are opaque to the cache. Implementations
// never fail: serialization or storage errors are logged and swallowed, and a
// corrupt or missing entry behaves exactly like an absent one.
type LocalCache interface {
	// Get deserializes the entry at `key` into `out` and reports whether a
	// usable entry existed.
	Get(key string, out any) bool
	Set(key string, value any)
	Remove(key string)

	SetVerbose(v bool)
}
