// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grant-screener/pkg/types"
)

func TestNewSerpAPIRequiresKey(t *testing.T) {
	_, err := NewSerpAPI(types.SearchConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serpapi key not configured")
}

func TestSerpAPISearch(t *testing.T) {
	var gotQuery, gotNum, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotNum = r.URL.Query().Get("num")
		gotKey = r.URL.Query().Get("api_key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results": [
			{"title": "Acme Family Foundation", "snippet": "990 filing", "link": "https://projects.propublica.org/nonprofits/1"},
			{"title": "Acme profile", "snippet": "directory", "link": "https://candid.org/acme"}
		]}`))
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	s, err := NewSerpAPI(types.SearchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "grant-screener/test"},
		APIKey:     "serp_test",
	})
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "acme family site:candid.org", 5)
	require.NoError(t, err)

	assert.Equal(t, "acme family site:candid.org", gotQuery)
	assert.Equal(t, "5", gotNum)
	assert.Equal(t, "serp_test", gotKey)

	require.Len(t, hits, 2)
	assert.Equal(t, "Acme Family Foundation", hits[0].Title)
	assert.Equal(t, "https://candid.org/acme", hits[1].Link)
}

func TestSerpAPISearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	s, err := NewSerpAPI(types.SearchConfig{APIKey: "bad"})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "acme", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestSerpAPISearchEmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	s, err := NewSerpAPI(types.SearchConfig{APIKey: "serp_test"})
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
