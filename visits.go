package rs

import (
	"log"
	"time"
)

// VisitTracker keeps the two timestamps used to classify feed items as seen
// or new: `previous_load` (the seen-cutoff) and `this_load` (when the current
// session's fetch completed).
type VisitTracker struct {
	store    PreferenceStore // nil when running without a remote store
	cache    LocalCache
	identity Identity

	now func() time.Time

	verbose bool
}

// return a new visit tracker
func newVisitTracker(store PreferenceStore, cache LocalCache, identity Identity) *VisitTracker {
	return &VisitTracker{
		store:    store,
		cache:    cache,
		identity: identity,

		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// PreviousLoad reconciles the seen-cutoff and returns it; nil means every
// item counts as new.
//
// The cutoff is the later of the *local* `this_load` and the *remote* visit
// timestamp. Comparing against the local this-load (not the local cutoff)
// is deliberate: repeated reloads on one device keep advancing the cutoff
// even before any remote write succeeds. The result is persisted into the
// local `previous_load` slot for synchronous reuse.
func (t *VisitTracker) PreviousLoad() *time.Time {
	var local *time.Time
	var thisLoad time.Time
	if t.cache.Get(cacheKeyThisLoad, &thisLoad) {
		local = &thisLoad
	}

	var remote *time.Time
	if userID, ok := t.userID(); ok {
		at, err := t.store.LastVisitedAt(userID)
		if err != nil {
			log.Printf("failed to fetch remote visit timestamp, using local only: %s", err)
		} else {
			remote = at
		}
	}

	previous := laterOf(local, remote)
	if previous == nil {
		v(t.verbose, "visits - no previous load recorded, treating everything as new")

		t.cache.Remove(cacheKeyPreviousLoad)
		return nil
	}

	v(t.verbose, "visits - previous load reconciled to: %s", previous.Format(time.RFC3339))

	t.cache.Set(cacheKeyPreviousLoad, *previous)
	return previous
}

// CommitThisLoad records that a fetch cycle just completed. Call only after
// a successful round-trip, and always after PreviousLoad within the same
// cycle — otherwise the load would mark its own items as seen.
//
// The remote visit row is a best-effort background write; its failure is
// logged and swallowed.
func (t *VisitTracker) CommitThisLoad() {
	now := t.now()

	v(t.verbose, "visits - committing this load at: %s", now.Format(time.RFC3339))

	t.cache.Set(cacheKeyThisLoad, now)

	if userID, ok := t.userID(); ok {
		if err := t.store.TouchVisited(userID, now); err != nil {
			log.Printf("failed to upsert remote visit timestamp: %s", err)
		}
	}
}

// SetVerbose sets the verbosity of the tracker.
func (t *VisitTracker) SetVerbose(verbose bool) {
	t.verbose = verbose
}

func (t *VisitTracker) userID() (string, bool) {
	if t.store == nil || t.identity == nil {
		return "", false
	}
	return t.identity.CurrentUserID()
}
