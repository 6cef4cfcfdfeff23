package websearch

import "context"

// Service defines the interface for web search operations.
type Service interface {
	// Search performs a web search with the given query
	Search(ctx context.Context, query string) (*SearchResult, error)

	// SearchWithOptions performs a web search with additional options
	SearchWithOptions(ctx context.Context, query string, options *SearchOptions) (*SearchResult, error)
}

// SearchResult represents the response from a web search operation
type SearchResult struct {
	Query     string       `json:"query"`
	Results   []SearchItem `json:"results"`
	Total     int          `json:"total,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// SearchItem represents a single search result item
type SearchItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchOptions provides additional configuration for search operations
type SearchOptions struct {
	// Number of results to return (default: 5)
	NumResults int `json:"num_results,omitempty"`

	// Language filter (e.g., "en")
	Language string `json:"language,omitempty"`
}

// Config holds service construction options.
type Config struct {
	// BaseURL overrides the search endpoint, mainly for tests
	BaseURL string

	// Timeout in seconds for search requests (default: 30)
	Timeout int

	// DefaultOptions applied when a search has none
	DefaultOptions *SearchOptions
}

// SearchError is a typed error for search operations
type SearchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *SearchError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
