// Package rs filters a single RSS feed through per-user block rules and
// keeps seen-state and preferences in sync between a local cache and a
// remote store, with a local fallback for anonymous use.
package rs

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ReaderState is the orchestrator's lifecycle state.
type ReaderState string

const (
	StateIdle    ReaderState = "idle"
	StateLoading ReaderState = "loading"
	StateReady   ReaderState = "ready"
	StateFailed  ReaderState = "failed"
)

// Reader composes the fetcher, the preference client and the visit tracker
// into the feed loading cycle, and owns the current filtered view.
//
// Rule sets, timestamps and the view are mutated only through its public
// operations.
type Reader struct {
	feedURL string

	fetcher FeedFetcher
	prefs   *PrefClient
	visits  *VisitTracker

	loading atomic.Bool // single-flight guard for Load

	mu              sync.Mutex
	state           ReaderState
	feedTitle       string
	feedDescription string
	raw             []FeedItem // as fetched, before filtering
	view            []FeedItem
	cutoff          *time.Time // seen-cutoff captured for this session
	staged          map[string]bool
	lastErr         error

	verbose bool
}

// NewReader returns a reader with memory-only storage and no remote store.
func NewReader(feedURL string, identity Identity) *Reader {
	cache := newMemCache()

	reader := newReader(
		feedURL,
		newHTTPFetcher(defaultFetchTimeoutSeconds*time.Second, 0),
		newPrefClient(nil, cache, identity),
		newVisitTracker(nil, cache, identity),
	)
	go reader.prefs.LoadInitial()

	return reader
}

// NewReaderWithDB returns a reader with a file-backed local cache and a
// SQLite-backed remote preference store.
func NewReaderWithDB(feedURL, dbFilepath, cacheDir string, identity Identity) (*Reader, error) {
	store, err := newDBStore(dbFilepath)
	if err != nil {
		return nil, fmt.Errorf("failed to create a reader with DB: %w", err)
	}
	cache := newFileCache(cacheDir)

	reader := newReader(
		feedURL,
		newHTTPFetcher(defaultFetchTimeoutSeconds*time.Second, 0),
		newPrefClient(store, cache, identity),
		newVisitTracker(store, cache, identity),
	)
	go reader.prefs.LoadInitial()

	return reader, nil
}

// NewReaderWithConfig wires a reader from a loaded Config.
func NewReaderWithConfig(cfg Config) (*Reader, error) {
	var store PreferenceStore
	if cfg.DBFilepath != "" {
		dbStore, err := newDBStore(cfg.DBFilepath)
		if err != nil {
			return nil, fmt.Errorf("failed to create a reader with DB: %w", err)
		}
		store = dbStore
	}

	var cache LocalCache
	if cfg.CacheDir != "" {
		cache = newFileCache(cfg.CacheDir)
	} else {
		cache = newMemCache()
	}

	identity := StaticIdentity(cfg.UserID)

	reader := newReader(
		cfg.FeedURL,
		newHTTPFetcher(
			time.Duration(cfg.FetchTimeoutSeconds)*time.Second,
			time.Duration(cfg.FeedCacheTTLSeconds)*time.Second,
		),
		newPrefClient(store, cache, identity),
		newVisitTracker(store, cache, identity),
	)
	reader.SetVerbose(cfg.Verbose)
	go reader.prefs.LoadInitial()

	return reader, nil
}

// internal constructor; callers are responsible for running the preference
// client's initial load
func newReader(feedURL string, fetcher FeedFetcher, prefs *PrefClient, visits *VisitTracker) *Reader {
	return &Reader{
		feedURL: feedURL,

		fetcher: fetcher,
		prefs:   prefs,
		visits:  visits,

		state:  StateIdle,
		staged: map[string]bool{},
	}
}

// Load runs one fetch cycle: reconcile the seen-cutoff (when
// `resetVisitTime`), wait for the preference client's initial load, fetch,
// filter, and commit the new visit timestamp only after everything
// succeeded.
//
// Only one load may be in flight; a concurrent call is dropped, not queued.
// A failed fetch keeps the previous ready view visible.
func (r *Reader) Load(ctx context.Context, resetVisitTime bool) error {
	if !r.loading.CompareAndSwap(false, true) {
		v(r.verbose, "reader - load already in flight, dropping")

		return nil
	}
	defer r.loading.Store(false)

	r.mu.Lock()
	r.state = StateLoading
	r.mu.Unlock()

	if resetVisitTime {
		previous := r.visits.PreviousLoad()

		r.mu.Lock()
		r.cutoff = previous
		r.mu.Unlock()
	}

	// never filter against a rule set that is about to be overwritten
	select {
	case <-r.prefs.Ready():
	case <-ctx.Done():
		r.fail(ctx.Err())
		return ctx.Err()
	}

	feed, err := r.fetcher.Fetch(ctx, r.feedURL)
	if err != nil {
		err = fmt.Errorf("failed to load feed: %w", err)
		r.fail(err)
		return err
	}

	r.mu.Lock()
	r.feedTitle = feed.Title
	r.feedDescription = feed.Description
	r.raw = feed.Items
	r.refilterLocked()
	r.state = StateReady
	r.lastErr = nil
	r.mu.Unlock()

	if resetVisitTime {
		r.visits.CommitThisLoad()
	}
	return nil
}

// Refilter re-applies the rule sets to the already-fetched items, without a
// network fetch.
func (r *Reader) Refilter() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refilterLocked()
}

func (r *Reader) refilterLocked() {
	r.view = FilterItems(r.raw, r.prefs.Snapshot(), r.cutoff)
}

func (r *Reader) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// a failed refresh does not clear a working view
	r.state = StateFailed
	r.lastErr = err
}

////////////////
//
// (category staging)
//

// StageCategory selects a category for blocking without committing it yet.
// Already blocked or staged labels are left alone.
func (r *Reader) StageCategory(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.categoryStateLocked(category) != CategoryUnblocked {
		return
	}
	r.staged[category] = true
}

// ToggleStaged flips the staged membership of a category; blocked labels are
// left alone.
func (r *Reader) ToggleStaged(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.categoryStateLocked(category) == CategoryBlocked {
		return
	}
	if r.staged[category] {
		delete(r.staged, category)
	} else {
		r.staged[category] = true
	}
}

// ApplyStaged commits every staged label into the blocked set (deduplicated
// union), clears the staged set, writes the result through the preference
// client and re-filters. The remote write error, if any, surfaces.
func (r *Reader) ApplyStaged() error {
	r.mu.Lock()
	if len(r.staged) == 0 {
		r.mu.Unlock()
		return nil
	}

	union := map[string]bool{}
	for _, category := range r.prefs.Categories() {
		union[category] = true
	}
	for category := range r.staged {
		union[category] = true
	}
	r.staged = map[string]bool{}
	r.mu.Unlock()

	categories := make([]string, 0, len(union))
	for category := range union {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	err := r.prefs.SaveCategories(categories)
	r.Refilter()
	return err
}

// CancelStaged clears the staged set without committing anything.
func (r *Reader) CancelStaged() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.staged = map[string]bool{}
}

// UnblockCategory removes a committed label entirely, writes through and
// re-filters.
func (r *Reader) UnblockCategory(category string) error {
	categories := slices.DeleteFunc(r.prefs.Categories(), func(existing string) bool {
		return existing == category
	})

	err := r.prefs.SaveCategories(categories)
	r.Refilter()
	return err
}

// CategoryStateOf returns the tagged blocking state of a label.
func (r *Reader) CategoryStateOf(category string) CategoryState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.categoryStateLocked(category)
}

func (r *Reader) categoryStateLocked(category string) CategoryState {
	if slices.Contains(r.prefs.Categories(), category) {
		return CategoryBlocked
	}
	if r.staged[category] {
		return CategoryStaged
	}
	return CategoryUnblocked
}

// StagedCategories returns the labels currently staged for blocking.
func (r *Reader) StagedCategories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make([]string, 0, len(r.staged))
	for category := range r.staged {
		staged = append(staged, category)
	}
	sort.Strings(staged)
	return staged
}

// BlockedCategories returns the committed blocked labels.
func (r *Reader) BlockedCategories() []string {
	return r.prefs.Categories()
}

////////////////
//
// (phrase rules)
//

// AddPhrase stores a new phrase rule through the preference client and
// re-filters. The rule takes local effect even when the remote write fails;
// the error surfaces so the caller can report it.
func (r *Reader) AddPhrase(rule PhraseRule) (PhraseRule, error) {
	saved, err := r.prefs.SavePhrase(rule)
	if err != nil && saved.ID == "" {
		return saved, err
	}
	r.Refilter()
	return saved, err
}

// RemovePhrase deletes a phrase rule by id and re-filters.
func (r *Reader) RemovePhrase(ruleID string) error {
	err := r.prefs.DeletePhrase(ruleID)
	r.Refilter()
	return err
}

// ClearPhrases deletes every phrase rule and re-filters.
func (r *Reader) ClearPhrases() error {
	err := r.prefs.ClearPhrases()
	r.Refilter()
	return err
}

// Phrases returns the current phrase rule set.
func (r *Reader) Phrases() []PhraseRule {
	return r.prefs.Phrases()
}

////////////////
//
// (accessors)
//

// Items returns the current filtered, ordered view.
func (r *Reader) Items() []FeedItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.view)
}

// State returns the orchestrator state.
func (r *Reader) State() ReaderState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// LastError returns the error of the most recent failed load, if any.
func (r *Reader) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastErr
}

// FeedTitle returns the fetched feed's title.
func (r *Reader) FeedTitle() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.feedTitle
}

// FeedDescription returns the fetched feed's description.
func (r *Reader) FeedDescription() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.feedDescription
}

// PreviousLoad returns the seen-cutoff captured for this session.
func (r *Reader) PreviousLoad() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cutoff
}

// Snapshot returns the reconciled rule view currently in effect.
func (r *Reader) Snapshot() PreferenceSnapshot {
	return r.prefs.Snapshot()
}

// SetVerbose sets the verbosity of the reader and its collaborators.
func (r *Reader) SetVerbose(verbose bool) {
	r.verbose = verbose
	r.prefs.SetVerbose(verbose)
	r.visits.SetVerbose(verbose)
	if fetcher, ok := r.fetcher.(*httpFetcher); ok {
		fetcher.SetVerbose(verbose)
	}
}
