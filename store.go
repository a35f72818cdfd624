package rs

import (
	"time"
)

const (
	slowQueryThresholdSeconds = 3
)

// PreferenceStore is the remote per-user preference store.
//
// Category rules are kept as one row per user with an array column, phrase
// rules as one row per rule, and the visit timestamp as one row per user.
type PreferenceStore interface {
	// GetCategories returns the blocked category labels of `userID`;
	// an absent row reads as an empty set.
	GetCategories(userID string) ([]string, error)
	// SaveCategories upserts the category row of `userID`.
	SaveCategories(userID string, categories []string) error

	// ListPhrases returns all phrase rules owned by `userID`.
	ListPhrases(userID string) ([]PhraseRule, error)
	// InsertPhrase stores a new phrase rule and returns it with its
	// store-assigned id.
	InsertPhrase(rule PhraseRule) (PhraseRule, error)
	DeletePhrase(userID, ruleID string) error
	ClearPhrases(userID string) error

	// LastVisitedAt returns the remote visit timestamp of `userID`,
	// or nil when none was recorded yet.
	LastVisitedAt(userID string) (*time.Time, error)
	// TouchVisited upserts the visit row of `userID` to `at`.
	TouchVisited(userID string, at time.Time) error

	SetVerbose(v bool)
}

// CategoryRecord is a per-user row holding the blocked category labels
// as a serialized JSON array.
type CategoryRecord struct {
	UserID     string `gorm:"primaryKey"`
	Categories string // JSON array of labels

	UpdatedAt time.Time
}

// PhraseRecord is one row per phrase rule.
type PhraseRecord struct {
	ID     string `gorm:"primaryKey"`
	UserID string `gorm:"index"`

	Phrase        string
	MatchTitle    bool
	MatchContent  bool
	CaseSensitive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisitRecord is a per-user row with a single visit timestamp column.
type VisitRecord struct {
	UserID        string `gorm:"primaryKey"`
	LastVisitedAt time.Time
}

func (r PhraseRecord) toRule() PhraseRule {
	return PhraseRule{
		ID:            r.ID,
		OwnerID:       r.UserID,
		Phrase:        r.Phrase,
		MatchTitle:    r.MatchTitle,
		MatchContent:  r.MatchContent,
		CaseSensitive: r.CaseSensitive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func recordFromRule(rule PhraseRule) PhraseRecord {
	return PhraseRecord{
		ID:            rule.ID,
		UserID:        rule.OwnerID,
		Phrase:        rule.Phrase,
		MatchTitle:    rule.MatchTitle,
		MatchContent:  rule.MatchContent,
		CaseSensitive: rule.CaseSensitive,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}
