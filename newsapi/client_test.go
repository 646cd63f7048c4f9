package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	var gotParams map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotParams = map[string]string{
			"q":        q.Get("q"),
			"from":     q.Get("from"),
			"to":       q.Get("to"),
			"pageSize": q.Get("pageSize"),
			"page":     q.Get("page"),
			"apiKey":   q.Get("apiKey"),
			"language": q.Get("language"),
		}
		json.NewEncoder(w).Encode(searchResponse{
			Status: "ok",
			Articles: []Article{
				{Title: "Quake hits region", URL: "http://example.com/1"},
				{Title: "Aftershocks continue", URL: "http://example.com/2"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", nil)
	arts, err := c.Search(context.Background(), "earthquake", "2025-03-28", "2025-03-29", 3)
	if err != nil {
		t.Fatalf("Search failed: %s", err)
	}
	if len(arts) != 2 {
		t.Errorf("got %d articles (expected 2)", len(arts))
	}
	if arts[0].Title != "Quake hits region" {
		t.Errorf("bad title: %s", arts[0].Title)
	}

	expect := map[string]string{
		"q":        "earthquake",
		"from":     "2025-03-28",
		"to":       "2025-03-29",
		"pageSize": "100",
		"page":     "3",
		"apiKey":   "sekrit",
		"language": "en",
	}
	for k, v := range expect {
		if gotParams[k] != v {
			t.Errorf("param %s: got %q (expected %q)", k, gotParams[k], v)
		}
	}
}

func TestSearchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","code":"rateLimited"}`, 429)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", nil)
	_, err := c.Search(context.Background(), "earthquake", "2025-03-28", "2025-03-29", 1)
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("expected ErrSearchUnavailable, got %v", err)
	}

	// transport failure (server gone) is the same condition
	srv.Close()
	_, err = c.Search(context.Background(), "earthquake", "2025-03-28", "2025-03-29", 1)
	if !errors.Is(err, ErrSearchUnavailable) {
		t.Errorf("expected ErrSearchUnavailable after close, got %v", err)
	}
}

func TestImageURLs(t *testing.T) {
	tests := []struct {
		art    Article
		expect []string
	}{
		{Article{Images: []string{"http://x/a.jpg", "http://x/b.jpg"}, URLToImage: "http://x/c.jpg"},
			[]string{"http://x/a.jpg", "http://x/b.jpg"}},
		{Article{URLToImage: "http://x/c.jpg"}, []string{"http://x/c.jpg"}},
		{Article{}, []string{""}},
	}
	for i, tst := range tests {
		got := tst.art.ImageURLs()
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", tst.expect) {
			t.Errorf("case %d: got %v (expected %v)", i, got, tst.expect)
		}
	}
}

func TestTruncatedContent(t *testing.T) {
	a := Article{Content: "Dozens injured in Mandalay after a magnitude… [+2310 chars]"}
	if !a.TruncatedContent() {
		t.Errorf("expected truncation marker to be detected")
	}
	b := Article{Content: "Dozens injured in Mandalay."}
	if b.TruncatedContent() {
		t.Errorf("false positive on untruncated content")
	}
}
