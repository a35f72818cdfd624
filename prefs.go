package rs

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"
)

// PrefClient reconciles the remote per-user preference record with the local
// cache. It is the only writer to both copies.
//
// Reads degrade silently to the local cache when the remote store fails;
// writes go through to both copies and surface remote failures to the caller.
type PrefClient struct {
	store    PreferenceStore // nil when running without a remote store
	cache    LocalCache
	identity Identity

	mu         sync.Mutex
	categories []string
	phrases    []PhraseRule

	ready     chan struct{}
	readyOnce sync.Once

	verbose bool
}

// return a new preference client
func newPrefClient(store PreferenceStore, cache LocalCache, identity Identity) *PrefClient {
	return &PrefClient{
		store:    store,
		cache:    cache,
		identity: identity,

		ready: make(chan struct{}),
	}
}

// Ready returns a channel closed exactly once, after the initial load of
// both rule sets has finished.
func (p *PrefClient) Ready() <-chan struct{} {
	return p.ready
}

// LoadInitial loads both rule sets once and marks the client ready.
func (p *PrefClient) LoadInitial() {
	p.LoadCategories()
	p.LoadPhrases()

	p.readyOnce.Do(func() {
		close(p.ready)
	})
}

// current user id, when signed in and a remote store is configured
func (p *PrefClient) userID() (string, bool) {
	if p.store == nil || p.identity == nil {
		return "", false
	}
	return p.identity.CurrentUserID()
}

////////////////
//
// (categories)
//

// LoadCategories returns the authoritative blocked category set.
//
// Anonymous users read the local cache. Signed-in users read the remote row;
// on success it overwrites the cache, except when the remote record is empty
// and a non-empty local one exists — then the local set is pushed up once
// instead (first-login migration; a non-empty remote row is never clobbered).
// On remote failure the local cache is returned and no error surfaces.
func (p *PrefClient) LoadCategories() []string {
	local := p.cachedCategories()

	userID, ok := p.userID()
	if !ok {
		return p.setCategories(local)
	}

	v(p.verbose, "prefs - loading categories for user: %s", userID)

	remote, err := p.store.GetCategories(userID)
	if err != nil {
		log.Printf("failed to load categories, falling back to local cache: %s", err)
		return p.setCategories(local)
	}

	if len(remote) == 0 && len(local) > 0 {
		v(p.verbose, "prefs - migrating %d local categories to remote", len(local))

		if err := p.store.SaveCategories(userID, local); err != nil {
			log.Printf("failed to migrate local categories to remote: %s", err)
		}
		return p.setCategories(local)
	}

	p.cache.Set(cacheKeyBlockedCategories, remote)
	return p.setCategories(remote)
}

// SaveCategories writes the blocked category set through to the remote row
// (when signed in) and always to the local cache.
func (p *PrefClient) SaveCategories(categories []string) error {
	p.cache.Set(cacheKeyBlockedCategories, categories)
	p.setCategories(categories)

	if userID, ok := p.userID(); ok {
		if err := p.store.SaveCategories(userID, categories); err != nil {
			log.Printf("failed to save categories to remote: %s", err)
			return fmt.Errorf("failed to save categories: %w", err)
		}
	}
	return nil
}

// Categories returns the current committed blocked category set.
func (p *PrefClient) Categories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.categories)
}

////////////////
//
// (phrases)
//

// LoadPhrases returns the authoritative phrase rule set, with the same
// remote-wins / migrate-up-once / degrade-to-cache semantics as
// LoadCategories. Migration inserts local rules remotely one by one, since
// phrases are row-per-rule.
func (p *PrefClient) LoadPhrases() []PhraseRule {
	local := p.cachedPhrases()

	userID, ok := p.userID()
	if !ok {
		return p.setPhrases(local)
	}

	v(p.verbose, "prefs - loading phrases for user: %s", userID)

	remote, err := p.store.ListPhrases(userID)
	if err != nil {
		log.Printf("failed to load phrases, falling back to local cache: %s", err)
		return p.setPhrases(local)
	}

	if len(remote) == 0 && len(local) > 0 {
		v(p.verbose, "prefs - migrating %d local phrases to remote", len(local))

		migrated := make([]PhraseRule, 0, len(local))
		for _, rule := range local {
			rule.OwnerID = userID
			inserted, err := p.store.InsertPhrase(rule)
			if err != nil {
				log.Printf("failed to migrate local phrase '%s' to remote: %s", rule.Phrase, err)
				migrated = append(migrated, rule)
				continue
			}
			migrated = append(migrated, inserted)
		}
		return p.setPhrases(migrated)
	}

	p.cache.Set(cacheKeyBlockedPhrases, remote)
	return p.setPhrases(remote)
}

// SavePhrase stores a new phrase rule, assigning a remote id when signed in
// or a client-generated `local-` id otherwise, and writes it through to the
// local cache.
func (p *PrefClient) SavePhrase(rule PhraseRule) (PhraseRule, error) {
	rule.Phrase = strings.TrimSpace(rule.Phrase)
	if rule.Phrase == "" {
		return PhraseRule{}, fmt.Errorf("failed to save phrase: empty phrase")
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	var remoteErr error
	if userID, ok := p.userID(); ok {
		rule.OwnerID = userID
		inserted, err := p.store.InsertPhrase(rule)
		if err != nil {
			log.Printf("failed to save phrase to remote: %s", err)
			remoteErr = fmt.Errorf("failed to save phrase: %w", err)
		} else {
			rule = inserted
		}
	}
	if rule.ID == "" {
		rule.ID = newLocalPhraseID()
	}

	p.mu.Lock()
	p.phrases = append(p.phrases, rule)
	phrases := slices.Clone(p.phrases)
	p.mu.Unlock()
	p.cache.Set(cacheKeyBlockedPhrases, phrases)

	return rule, remoteErr
}

// DeletePhrase removes the phrase rule with given id from both copies.
// Client-generated local ids are never round-tripped to the remote store.
func (p *PrefClient) DeletePhrase(ruleID string) error {
	p.mu.Lock()
	p.phrases = slices.DeleteFunc(p.phrases, func(rule PhraseRule) bool {
		return rule.ID == ruleID
	})
	phrases := slices.Clone(p.phrases)
	p.mu.Unlock()
	p.cache.Set(cacheKeyBlockedPhrases, phrases)

	if userID, ok := p.userID(); ok && !isLocalPhraseID(ruleID) {
		if err := p.store.DeletePhrase(userID, ruleID); err != nil {
			log.Printf("failed to delete phrase from remote: %s", err)
			return fmt.Errorf("failed to delete phrase: %w", err)
		}
	}
	return nil
}

// ClearPhrases removes every phrase rule from both copies.
func (p *PrefClient) ClearPhrases() error {
	p.setPhrases([]PhraseRule{})
	p.cache.Remove(cacheKeyBlockedPhrases)

	if userID, ok := p.userID(); ok {
		if err := p.store.ClearPhrases(userID); err != nil {
			log.Printf("failed to clear phrases from remote: %s", err)
			return fmt.Errorf("failed to clear phrases: %w", err)
		}
	}
	return nil
}

// Phrases returns the current phrase rule set.
func (p *PrefClient) Phrases() []PhraseRule {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.phrases)
}

// Snapshot returns the reconciled rule view for filtering.
func (p *PrefClient) Snapshot() PreferenceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PreferenceSnapshot{
		BlockedCategories: slices.Clone(p.categories),
		BlockedPhrases:    slices.Clone(p.phrases),
	}
}

// SetVerbose sets the verbosity of the client.
func (p *PrefClient) SetVerbose(verbose bool) {
	p.verbose = verbose
}

func (p *PrefClient) cachedCategories() []string {
	var categories []string
	if !p.cache.Get(cacheKeyBlockedCategories, &categories) {
		return []string{}
	}
	return categories
}

func (p *PrefClient) cachedPhrases() []PhraseRule {
	var phrases []PhraseRule
	if !p.cache.Get(cacheKeyBlockedPhrases, &phrases) {
		return []PhraseRule{}
	}
	return phrases
}

func (p *PrefClient) setCategories(categories []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.categories = categories
	return slices.Clone(categories)
}

func (p *PrefClient) setPhrases(phrases []PhraseRule) []PhraseRule {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phrases = phrases
	return slices.Clone(phrases)
}
