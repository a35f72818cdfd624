package rs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	defaultFetchTimeoutSeconds = 10

	// upstream politeness: at most one fetch per interval, with a small burst
	fetchIntervalSeconds = 1
	fetchBurst           = 3
)

// FeedFetcher yields the raw item list of a feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*Feed, error)
}

// gofeed-backed fetcher with a TTL cache for repeat fetches
type httpFetcher struct {
	client  *http.Client
	parser  *gofeed.Parser
	limiter *rate.Limiter
	fetched *gocache.Cache // parsed feeds keyed by url; nil when disabled

	verbose bool
}

// return a new http fetcher; a zero `cacheTTL` disables the feed cache
func newHTTPFetcher(timeout, cacheTTL time.Duration) *httpFetcher {
	fetcher := &httpFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(rate.Every(fetchIntervalSeconds*time.Second), fetchBurst),
	}
	if cacheTTL > 0 {
		fetcher.fetched = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return fetcher
}

// Fetch fetches and parses the feed at `url`.
func (f *httpFetcher) Fetch(ctx context.Context, url string) (*Feed, error) {
	if f.fetched != nil {
		if hit, exists := f.fetched.Get(url); exists {
			v(f.verbose, "serving cached feed for url: %s", url)

			return hit.(*Feed), nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch feed from url '%s': %w", url, err)
	}

	v(f.verbose, "fetching feed from url: %s", url)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fakeUserAgent)
	req.Header.Set("Content-Type", "text/xml;charset=UTF-8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from url '%s': %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("http error %d from url: '%s'", resp.StatusCode, url)
	}

	bytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed document from '%s': %w", url, err)
	}
	parsed, err := f.parser.ParseString(string(bytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed from '%s': %w", url, err)
	}

	v(f.verbose, "fetched %d item(s)", len(parsed.Items))

	feed := convertFeed(parsed)
	if f.fetched != nil {
		f.fetched.SetDefault(url, feed)
	}
	return feed, nil
}

// SetVerbose sets the verbosity of the fetcher.
func (f *httpFetcher) SetVerbose(v bool) {
	f.verbose = v
}

// convert a parsed gofeed feed into this package's types
func convertFeed(parsed *gofeed.Feed) *Feed {
	feed := &Feed{
		Title:       collapseWhitespace(parsed.Title),
		Description: collapseWhitespace(parsed.Description),
		Items:       make([]FeedItem, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		converted := FeedItem{
			Title:       collapseWhitespace(item.Title),
			Link:        item.Link,
			Categories:  item.Categories,
			PublishedAt: item.PublishedParsed,
		}
		if item.Author != nil {
			if len(item.Author.Name) > 0 {
				converted.Author = item.Author.Name
			} else if len(item.Author.Email) > 0 {
				converted.Author = item.Author.Email
			}
		}
		if len(item.Content) > 0 {
			converted.Content = stripHTML(item.Content)
		} else {
			converted.Content = stripHTML(item.Description)
		}
		converted.Summary = stripHTML(item.Description)

		feed.Items = append(feed.Items, converted)
	}
	return feed
}
