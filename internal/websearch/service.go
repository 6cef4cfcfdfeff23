package websearch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// service implements the Service interface against the DuckDuckGo HTML
// endpoint: one GET, then regex scrape of result anchors and snippets.
type service struct {
	config *Config
	client *http.Client
}

// NewService creates a new web search service with the given configuration.
func NewService(config Config) Service {
	if config.BaseURL == "" {
		config.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if config.Timeout == 0 {
		config.Timeout = 30
	}
	if config.DefaultOptions == nil {
		config.DefaultOptions = &SearchOptions{
			NumResults: 5,
			Language:   "en",
		}
	}

	return &service{
		config: &config,
		client: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}
}

// Search implements Service.
func (s *service) Search(ctx context.Context, query string) (*SearchResult, error) {
	return s.SearchWithOptions(ctx, query, s.config.DefaultOptions)
}

// SearchWithOptions implements Service.
func (s *service) SearchWithOptions(ctx context.Context, query string, options *SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &SearchError{
			Code:    "empty_query",
			Message: "search query must not be empty",
		}
	}

	limit := 5
	if options != nil && options.NumResults > 0 {
		limit = options.NumResults
	}

	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &SearchError{
			Code:    "request_error",
			Message: "failed to build search request",
			Details: err.Error(),
		}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; studyforge/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SearchError{
			Code:    "network_error",
			Message: "search request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchError{
			Code:    "read_error",
			Message: "failed to read search response",
			Details: err.Error(),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{
			Code:    "http_error",
			Message: fmt.Sprintf("search endpoint returned status %d", resp.StatusCode),
		}
	}

	items := parseResults(string(body), limit)
	return &SearchResult{
		Query:     query,
		Results:   items,
		Total:     len(items),
		Timestamp: time.Now().Unix(),
	}, nil
}

var (
	resultLink    = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippet = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
)

func parseResults(page string, limit int) []SearchItem {
	links := resultLink.FindAllStringSubmatch(page, limit)
	snippets := resultSnippet.FindAllStringSubmatch(page, limit)

	items := make([]SearchItem, 0, len(links))
	for i, link := range links {
		item := SearchItem{
			URL:   resolveRedirect(html.UnescapeString(link[1])),
			Title: cleanFragment(link[2]),
		}
		if i < len(snippets) {
			item.Snippet = cleanFragment(snippets[i][1])
		}
		items = append(items, item)
	}
	return items
}

// resolveRedirect unwraps the uddg redirect parameter into the target URL.
func resolveRedirect(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return raw
}

func cleanFragment(fragment string) string {
	text := htmlTag.ReplaceAllString(fragment, "")
	return strings.TrimSpace(html.UnescapeString(text))
}
