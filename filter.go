package rs

import (
	"sort"
	"strings"
	"time"
)

// Seen reports whether `item` counts as already seen against the cutoff.
// Strict less-than: an item published exactly at the cutoff is still new,
// and items without a parsable publish date are never seen.
func Seen(item FeedItem, previousLoad *time.Time) bool {
	if previousLoad == nil || item.PublishedAt == nil {
		return false
	}
	return item.PublishedAt.Before(*previousLoad)
}

// MatchesPhrase reports whether `rule` excludes `item`. Title and content
// are checked independently; matching either is enough. A rule with both
// MatchTitle and MatchContent false matches nothing.
func MatchesPhrase(rule PhraseRule, item FeedItem) bool {
	phrase := foldCase(rule.Phrase, rule.CaseSensitive)
	if phrase == "" {
		return false
	}

	if rule.MatchTitle && strings.Contains(foldCase(item.Title, rule.CaseSensitive), phrase) {
		return true
	}
	if rule.MatchContent {
		if strings.Contains(foldCase(item.Content, rule.CaseSensitive), phrase) {
			return true
		}
		if strings.Contains(foldCase(item.Summary, rule.CaseSensitive), phrase) {
			return true
		}
	}
	return false
}

// Excluded reports whether `item` is dropped by the combined predicate:
// an item survives iff it has no blocked category AND no matching phrase.
func Excluded(item FeedItem, blockedCategories map[string]struct{}, rules []PhraseRule) bool {
	for _, category := range item.Categories {
		if _, blocked := blockedCategories[category]; blocked {
			return true
		}
	}
	for _, rule := range rules {
		if MatchesPhrase(rule, item) {
			return true
		}
	}
	return false
}

// FilterItems applies both rule sets to `items` and orders the survivors:
// unseen before seen, publish date descending within each group. The sort is
// stable, and a comparison where either side lacks a date never reorders
// that pair. Pure: the input slice is left untouched.
func FilterItems(items []FeedItem, snapshot PreferenceSnapshot, previousLoad *time.Time) []FeedItem {
	blocked := map[string]struct{}{}
	for _, category := range snapshot.BlockedCategories {
		blocked[category] = struct{}{}
	}

	kept := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if !Excluded(item, blocked, snapshot.BlockedPhrases) {
			kept = append(kept, item)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		seenI, seenJ := Seen(kept[i], previousLoad), Seen(kept[j], previousLoad)
		if seenI != seenJ {
			return !seenI
		}
		if kept[i].PublishedAt == nil || kept[j].PublishedAt == nil {
			return false
		}
		return kept[i].PublishedAt.After(*kept[j].PublishedAt)
	})

	return kept
}

// Match is the set of occurrences of one rule's phrase inside a text.
// Offsets are byte offsets into the case-folded text.
type Match struct {
	Rule    PhraseRule `json:"rule"`
	Offsets []int      `json:"offsets"`
	Length  int        `json:"length"`
}

// Span is a half-open highlighted range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FindMatches scans `text` with every applicable rule and returns the start
// offsets of all non-overlapping occurrences, for UI highlighting.
func FindMatches(text string, rules []PhraseRule, inTitle bool) []Match {
	matches := []Match{}
	for _, rule := range rules {
		if inTitle && !rule.MatchTitle {
			continue
		}
		if !inTitle && !rule.MatchContent {
			continue
		}

		phrase := foldCase(rule.Phrase, rule.CaseSensitive)
		if phrase == "" {
			continue
		}
		haystack := foldCase(text, rule.CaseSensitive)

		offsets := []int{}
		for from := 0; ; {
			i := strings.Index(haystack[from:], phrase)
			if i < 0 {
				break
			}
			offsets = append(offsets, from+i)
			from += i + len(phrase)
		}
		if len(offsets) > 0 {
			matches = append(matches, Match{
				Rule:    rule,
				Offsets: offsets,
				Length:  len(phrase),
			})
		}
	}
	return matches
}

// MergeSpans flattens the matches of all rules into highlight spans,
// coalescing overlapping or adjacent ones into contiguous ranges.
func MergeSpans(matches []Match) []Span {
	spans := []Span{}
	for _, match := range matches {
		for _, offset := range match.Offsets {
			spans = append(spans, Span{Start: offset, End: offset + match.Length})
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	merged := []Span{}
	for _, span := range spans {
		if n := len(merged); n > 0 && span.Start <= merged[n-1].End {
			if span.End > merged[n-1].End {
				merged[n-1].End = span.End
			}
			continue
		}
		merged = append(merged, span)
	}
	return merged
}

// fold text for matching per a rule's case sensitivity
func foldCase(text string, caseSensitive bool) string {
	if caseSensitive {
		return text
	}
	return strings.ToLower(text)
}
