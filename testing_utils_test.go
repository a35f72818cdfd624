package rs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// in-memory preference store for tests, with switchable failure modes
type fakeStore struct {
	mu sync.Mutex

	categories map[string][]string
	phrases    map[string][]PhraseRule
	visited    map[string]time.Time

	nextID int

	failReads  bool
	failWrites bool

	categorySaves int
	phraseInserts int
	phraseDeletes int
	visitTouches  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: map[string][]string{},
		phrases:    map[string][]PhraseRule{},
		visited:    map[string]time.Time{},
	}
}

var errStoreDown = errors.New("store unreachable")

func (s *fakeStore) GetCategories(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errStoreDown
	}
	return append([]string(nil), s.categories[userID]...), nil
}

func (s *fakeStore) SaveCategories(userID string, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	s.categorySaves++
	s.categories[userID] = append([]string(nil), categories...)
	return nil
}

func (s *fakeStore) ListPhrases(userID string) ([]PhraseRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errStoreDown
	}
	return append([]PhraseRule(nil), s.phrases[userID]...), nil
}

func (s *fakeStore) InsertPhrase(rule PhraseRule) (PhraseRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return PhraseRule{}, errStoreDown
	}
	s.phraseInserts++
	s.nextID++
	rule.ID = fmt.Sprintf("remote-%d", s.nextID)
	s.phrases[rule.OwnerID] = append(s.phrases[rule.OwnerID], rule)
	return rule, nil
}

func (s *fakeStore) DeletePhrase(userID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	s.phraseDeletes++
	kept := s.phrases[userID][:0]
	for _, rule := range s.phrases[userID] {
		if rule.ID != ruleID {
			kept = append(kept, rule)
		}
	}
	s.phrases[userID] = kept
	return nil
}

func (s *fakeStore) ClearPhrases(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	delete(s.phrases, userID)
	return nil
}

func (s *fakeStore) LastVisitedAt(userID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errStoreDown
	}
	at, exists := s.visited[userID]
	if !exists {
		return nil, nil
	}
	return &at, nil
}

func (s *fakeStore) TouchVisited(userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	s.visitTouches++
	s.visited[userID] = at
	return nil
}

func (s *fakeStore) SetVerbose(bool) {}

// fetcher serving canned items, counting fetches
type fakeFetcher struct {
	feed    *Feed
	err     error
	fetches atomic.Int32

	// when set, Fetch signals `started` and blocks until `release` closes
	started chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*Feed, error) {
	f.fetches.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	feed := *f.feed
	return &feed, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func testItems() []FeedItem {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []FeedItem{
		{
			Title:       "Policy shake-up announced",
			Link:        "https://example.com/policy",
			Categories:  []string{"Policy"},
			Content:     "A long policy story.",
			PublishedAt: timePtr(base.Add(3 * time.Hour)),
		},
		{
			Title:       "Science breakthrough",
			Link:        "https://example.com/science",
			Categories:  []string{"Science"},
			Content:     "A long science story.",
			PublishedAt: timePtr(base.Add(2 * time.Hour)),
		},
		{
			Title:       "Tech Layoffs Continue",
			Link:        "https://example.com/layoffs",
			Categories:  []string{"Business"},
			Content:     "Cuts across the industry.",
			PublishedAt: timePtr(base.Add(1 * time.Hour)),
		},
		{
			Title:   "Undated announcement",
			Link:    "https://example.com/undated",
			Content: "No publish date on this one.",
		},
	}
}

// reader wired with fakes; the preference client is already loaded
func newTestReader(store PreferenceStore, identity Identity, fetcher FeedFetcher) (*Reader, LocalCache) {
	cache := newMemCache()
	prefs := newPrefClient(store, cache, identity)
	visits := newVisitTracker(store, cache, identity)
	reader := newReader("https://example.com/feed.xml", fetcher, prefs, visits)
	prefs.LoadInitial()
	return reader, cache
}
