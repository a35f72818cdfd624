package rs

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/tailscale/hujson"
)

const (
	fakeUserAgent = `Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:128.0) Gecko/20100101 Firefox/128.0`

	localIDPrefix = `local-`
)

// StandardizeJSON standardizes given JSON (JWCC) bytes.
func StandardizeJSON(b []byte) ([]byte, error) {
	ast, err := hujson.Parse(b)
	if err != nil {
		return b, err
	}
	ast.Standardize()

	return ast.Pack(), nil
}

// print verbose message
func v(verbose bool, format string, v ...any) {
	if verbose {
		log.Printf("[verbose] %s", fmt.Sprintf(format, v...))
	}
}

// strip HTML markup from given content, returning collapsed plain text
func stripHTML(content string) string {
	if content == "" {
		return ""
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		// NOTE: removing unwanted things here
		_ = doc.Find("script").Remove()                   // javascripts
		_ = doc.Find("link[rel=\"stylesheet\"]").Remove() // css links
		_ = doc.Find("style").Remove()                    // embeded css tyles

		return collapseWhitespace(doc.Text())
	}

	return collapseWhitespace(content)
}

// collapse all runs of whitespace into single spaces
func collapseWhitespace(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

// generate a client-side id for a phrase rule created without a remote store
// (gives the UI a stable key for deletion before any remote id exists)
func newLocalPhraseID() string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")

	return fmt.Sprintf("%s%d-%s", localIDPrefix, time.Now().UnixMilli(), suffix)
}

// check if given phrase rule id was generated client-side
func isLocalPhraseID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// return the later of two optional instants; nil when both are absent
func laterOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}
