package rs

import (
	"time"
)

// FeedItem is a single syndicated article. Immutable once fetched; items
// live only for the current session and are never persisted.
type FeedItem struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Author      string     `json:"author,omitempty"`
	Content     string     `json:"content,omitempty"` // plain text, HTML stripped
	Summary     string     `json:"summary,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Feed is the result of one successful fetch. It is re-created whole on
// every fetch, never partially updated.
type Feed struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Items       []FeedItem `json:"items"`
}

// PhraseRule excludes items whose title and/or content contains a phrase.
//
// A rule with both MatchTitle and MatchContent false matches nothing; such
// rules are accepted but have no effect.
type PhraseRule struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Phrase        string    `json:"phrase"`
	MatchTitle    bool      `json:"match_title"`
	MatchContent  bool      `json:"match_content"`
	CaseSensitive bool      `json:"case_sensitive"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PreferenceSnapshot is the reconciled rule view the filter runs against.
type PreferenceSnapshot struct {
	BlockedCategories []string     `json:"blocked_categories"`
	BlockedPhrases    []PhraseRule `json:"blocked_phrases"`
}

// CategoryState is the per-label blocking state.
type CategoryState int

const (
	CategoryUnblocked CategoryState = iota
	CategoryStaged                  // selected for blocking but not yet committed
	CategoryBlocked
)

// Identity yields the current opaque user id, or none for anonymous use.
// The library only ever reads it; session management happens elsewhere.
type Identity interface {
	CurrentUserID() (userID string, ok bool)
}

type staticIdentity string

func (s staticIdentity) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

// StaticIdentity returns an identity fixed to `userID`.
// An empty id behaves like Anonymous.
func StaticIdentity(userID string) Identity {
	return staticIdentity(userID)
}

// Anonymous is the identity of a user who is not signed in.
var Anonymous Identity = staticIdentity("")
