package rs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	defaultAddress             = ":8484"
	defaultFeedCacheTTLSeconds = 60
)

// Config is the configuration of a reader, loadable from a JWCC
// (JSON with commas and comments) file.
type Config struct {
	// FeedURL is the single feed this reader follows. (required)
	FeedURL string `json:"feed_url"`

	// DBFilepath is the SQLite file of the preference store;
	// empty runs without a remote store.
	DBFilepath string `json:"db_filepath,omitempty"`

	// CacheDir is the directory of the local cache;
	// empty keeps the cache in memory only.
	CacheDir string `json:"cache_dir,omitempty"`

	// UserID is the opaque user identifier; empty means anonymous.
	UserID string `json:"user_id,omitempty"`

	// Address is the bind address of the HTTP server.
	Address string `json:"address,omitempty"`

	FetchTimeoutSeconds int  `json:"fetch_timeout_seconds,omitempty"`
	FeedCacheTTLSeconds int  `json:"feed_cache_ttl_seconds,omitempty"`
	Verbose             bool `json:"verbose,omitempty"`
}

// LoadConfig loads a Config from the JWCC file at `path`.
func LoadConfig(path string) (cfg Config, err error) {
	var bytes []byte
	if bytes, err = os.ReadFile(path); err == nil {
		if bytes, err = StandardizeJSON(bytes); err == nil {
			if err = json.Unmarshal(bytes, &cfg); err == nil {
				if cfg.FeedURL == "" {
					return cfg, errors.New("`feed_url` is missing in config")
				}
				if cfg.Address == "" {
					cfg.Address = defaultAddress
				}
				if cfg.FetchTimeoutSeconds <= 0 {
					cfg.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
				}
				if cfg.FeedCacheTTLSeconds == 0 {
					cfg.FeedCacheTTLSeconds = defaultFeedCacheTTLSeconds
				} else if cfg.FeedCacheTTLSeconds < 0 {
					// negative disables the feed cache
					cfg.FeedCacheTTLSeconds = 0
				}
				return cfg, nil
			}
		}
	}

	return cfg, fmt.Errorf("failed to load config from '%s': %w", path, err)
}
