// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/grant-screener/internal/httputil"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint. Declared as a var so tests can
// substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search.json"

// SerpAPI queries Google through the SerpAPI JSON API.
type SerpAPI struct {
	apiKey    string
	client    *http.Client
	userAgent string
}

// NewSerpAPI builds the production search provider. A missing API key is a
// configuration error raised here, before any query executes.
func NewSerpAPI(cfg types.SearchConfig) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi key not configured: add .secrets/serpapi-api-key or set search.api_key")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SerpAPI{
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}, nil
}

// Name returns the provider identifier.
func (s *SerpAPI) Name() string { return "serpapi" }

// serpAPIResponse is the subset of the SerpAPI payload this provider reads.
type serpAPIResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search runs one Google query and returns up to n organic results. Rate
// limiting (HTTP 429) is retried with backoff.
func (s *SerpAPI) Search(ctx context.Context, query string, n int) ([]Hit, error) {
	params := url.Values{
		"engine":  {"google"},
		"q":       {query},
		"api_key": {s.apiKey},
		"num":     {fmt.Sprintf("%d", n)},
		"gl":      {"us"},
		"hl":      {"en"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned HTTP %d", resp.StatusCode)
	}

	var sr serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SerpAPI response: %w", err)
	}

	hits := make([]Hit, 0, len(sr.Organic))
	for _, r := range sr.Organic {
		hits = append(hits, Hit{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	return hits, nil
}
