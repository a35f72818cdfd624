package rs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testServer(t *testing.T) (*Reader, http.Handler) {
	t.Helper()

	reader, _ := newTestReader(newFakeStore(), StaticIdentity("u1"), &fakeFetcher{
		feed: &Feed{Title: "Example News", Items: testItems()},
	})
	if err := reader.Load(context.Background(), false); err != nil {
		t.Fatalf("load failed: %s", err)
	}
	return reader, NewServer(reader)
}

func serve(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServerItems(t *testing.T) {
	_, handler := testServer(t)

	response := serve(t, handler, http.MethodGet, "/items", "")
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.Code)
	}

	var decoded struct {
		State string `json:"state"`
		Feed  struct {
			Title string `json:"title"`
		} `json:"feed"`
		Items []FeedItem `json:"items"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %s", err)
	}
	if decoded.State != string(StateReady) {
		t.Errorf("unexpected state: '%s'", decoded.State)
	}
	if decoded.Feed.Title != "Example News" {
		t.Errorf("unexpected feed title: '%s'", decoded.Feed.Title)
	}
	if len(decoded.Items) == 0 {
		t.Error("expected a non-empty view")
	}
}

func TestServerRefresh(t *testing.T) {
	_, handler := testServer(t)

	response := serve(t, handler, http.MethodPost, "/refresh?reset=false", "")
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", response.Code, response.Body)
	}
}

func TestServerCategoryFlow(t *testing.T) {
	reader, handler := testServer(t)

	if response := serve(t, handler, http.MethodPost, "/categories/Policy/stage", ""); response.Code != http.StatusOK {
		t.Fatalf("stage failed: %d", response.Code)
	}
	if got := reader.CategoryStateOf("Policy"); got != CategoryStaged {
		t.Errorf("expected staged state, got %v", got)
	}

	if response := serve(t, handler, http.MethodPost, "/categories/apply", ""); response.Code != http.StatusOK {
		t.Fatalf("apply failed: %d", response.Code)
	}
	if got := reader.CategoryStateOf("Policy"); got != CategoryBlocked {
		t.Errorf("expected blocked state, got %v", got)
	}

	response := serve(t, handler, http.MethodGet, "/categories", "")
	var decoded struct {
		Blocked []string `json:"blocked"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %s", err)
	}
	if len(decoded.Blocked) != 1 || decoded.Blocked[0] != "Policy" {
		t.Errorf("unexpected blocked set: %v", decoded.Blocked)
	}

	if response := serve(t, handler, http.MethodDelete, "/categories/Policy", ""); response.Code != http.StatusOK {
		t.Fatalf("unblock failed: %d", response.Code)
	}
	if got := reader.CategoryStateOf("Policy"); got != CategoryUnblocked {
		t.Errorf("expected unblocked state, got %v", got)
	}
}

func TestServerPhraseFlow(t *testing.T) {
	reader, handler := testServer(t)

	response := serve(t, handler, http.MethodPost, "/phrases", `{"phrase": "layoff", "match_title": true}`)
	if response.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d, body: %s", response.Code, response.Body)
	}
	var created struct {
		Phrase PhraseRule `json:"phrase"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %s", err)
	}
	if created.Phrase.ID == "" {
		t.Fatal("created rule has no id")
	}

	// a rule without a phrase is rejected before reaching the reader
	if response := serve(t, handler, http.MethodPost, "/phrases", `{"match_title": true}`); response.Code != http.StatusBadRequest {
		t.Errorf("unexpected status for an empty phrase: %d", response.Code)
	}

	if response := serve(t, handler, http.MethodDelete, "/phrases/"+created.Phrase.ID, ""); response.Code != http.StatusNoContent {
		t.Errorf("unexpected status for delete: %d", response.Code)
	}
	if len(reader.Phrases()) != 0 {
		t.Errorf("rules left after delete: %+v", reader.Phrases())
	}
}

func TestServerPublishedFeed(t *testing.T) {
	_, handler := testServer(t)

	response := serve(t, handler, http.MethodGet, "/rss.xml", "")
	if response.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.Code)
	}
	if contentType := response.Header().Get("Content-Type"); contentType != "application/rss+xml" {
		t.Errorf("unexpected content type: '%s'", contentType)
	}
	if !strings.Contains(response.Body.String(), "<channel>") {
		t.Errorf("expected an rss document:\n%s", response.Body)
	}
}
