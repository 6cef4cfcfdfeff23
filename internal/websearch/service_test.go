package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const resultsPage = `
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fgo&amp;rut=abc">The <b>Go</b> Programming Language</a>
  <a class="result__snippet" href="#">Go is an open source language that makes it easy to build software.</a>
</div>
<div class="result">
  <a class="result__a" href="https://go.dev/doc/">Documentation</a>
  <a class="result__snippet" href="#">Learn how to use Go.</a>
</div>
`

func TestSearchParsesResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("query = %q, want golang", got)
		}
		w.Write([]byte(resultsPage))
	}))
	defer ts.Close()

	svc := NewService(Config{BaseURL: ts.URL})
	result, err := svc.Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}
	first := result.Results[0]
	if first.URL != "https://example.com/go" {
		t.Fatalf("redirect not unwrapped: %q", first.URL)
	}
	if first.Title != "The Go Programming Language" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Snippet == "" {
		t.Fatal("snippet missing")
	}
	if result.Results[1].URL != "https://go.dev/doc/" {
		t.Fatalf("direct url mangled: %q", result.Results[1].URL)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := NewService(Config{BaseURL: "http://unused.invalid"})
	_, err := svc.Search(context.Background(), "   ")
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %T: %v", err, err)
	}
	if searchErr.Code != "empty_query" {
		t.Fatalf("code = %q, want empty_query", searchErr.Code)
	}
}

func TestSearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	svc := NewService(Config{BaseURL: ts.URL})
	_, err := svc.Search(context.Background(), "golang")
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected *SearchError, got %T: %v", err, err)
	}
	if searchErr.Code != "http_error" {
		t.Fatalf("code = %q, want http_error", searchErr.Code)
	}
}

func TestSearchWithOptionsLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	defer ts.Close()

	svc := NewService(Config{BaseURL: ts.URL})
	result, err := svc.SearchWithOptions(context.Background(), "golang", &SearchOptions{NumResults: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(result.Results))
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(Config{}).(*service)
	if svc.config.BaseURL == "" {
		t.Fatal("default base url missing")
	}
	if svc.config.Timeout != 30 {
		t.Fatalf("default timeout = %d, want 30", svc.config.Timeout)
	}
	if svc.config.DefaultOptions == nil || svc.config.DefaultOptions.NumResults != 5 {
		t.Fatalf("default options = %+v", svc.config.DefaultOptions)
	}
}
