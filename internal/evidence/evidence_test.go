// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// --- mock provider ---

// mockProvider answers queries by substring match and records every query.
type mockProvider struct {
	hits    map[string][]Hit // query substring → hits
	errFor  string           // query substring that fails
	queries []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Search(_ context.Context, query string, _ int) ([]Hit, error) {
	m.queries = append(m.queries, query)
	if m.errFor != "" && strings.Contains(query, m.errFor) {
		return nil, fmt.Errorf("provider unavailable")
	}
	for sub, hits := range m.hits {
		if strings.Contains(query, sub) {
			return hits, nil
		}
	}
	return nil, nil
}

func newAggregator(p Provider) *Aggregator {
	return NewAggregator(p, types.SearchConfig{}, nil)
}

var testOrg = types.Organization{Region: "NJ", TargetLocalities: "Newark, Camden"}

// --- Normalize ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"~Acme Family Foundation", "acme family"},
		{"Acme Family Foundation Inc", "acme family"},
		{"The Smith Trust", "smith"},
		{"acme family", "acme family"},
		{"Globex Corp LLC", "globex"},
		{"The Foundation", "The Foundation"}, // all noise: keep the input
		{"  ~  Beta Fund  ", "beta fund"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	names := []string{"~Acme Family Foundation", "The Foundation", "globex", "Beta Fund Inc"}
	for _, n := range names {
		once := Normalize(n)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", n, once, twice)
		}
	}
}

// --- relevance ---

func TestIsRelevant(t *testing.T) {
	tokens := searchTokens("acme family")
	tests := []struct {
		hit  Hit
		want bool
	}{
		{Hit{Title: "Acme Family Foundation - Nonprofit Explorer", Snippet: ""}, true},
		{Hit{Title: "Unrelated", Snippet: "grants to the acme community"}, true},
		{Hit{Title: "Different Org", Snippet: "nothing matching"}, false},
	}
	for _, tt := range tests {
		if got := isRelevant(tt.hit, tokens); got != tt.want {
			t.Errorf("isRelevant(%q) = %v, want %v", tt.hit.Title, got, tt.want)
		}
	}
}

func TestIsRelevantNoUsableTokens(t *testing.T) {
	// "j w co" yields no token longer than 3 chars; everything passes.
	tokens := searchTokens("j w co")
	if len(tokens) != 0 {
		t.Fatalf("tokens = %v, want none", tokens)
	}
	if !isRelevant(Hit{Title: "anything at all"}, tokens) {
		t.Error("short-name fallback should treat all hits as relevant")
	}
}

func TestSearchTokensKeepsFourCharWords(t *testing.T) {
	got := searchTokens("j w fund")
	if len(got) != 1 || got[0] != "fund" {
		t.Errorf("searchTokens(%q) = %v, want [fund]", "j w fund", got)
	}
}

// --- Gather ---

func TestGatherKeepsOneHitPerPrioritySource(t *testing.T) {
	p := &mockProvider{hits: map[string][]Hit{
		"propublica": {
			{Title: "Wrong Org", Snippet: "no match here", Link: "https://projects.propublica.org/nonprofits/1"},
			{Title: "Acme Family Foundation", Snippet: "990 filing", Link: "https://projects.propublica.org/nonprofits/2"},
			{Title: "Acme again", Snippet: "acme", Link: "https://projects.propublica.org/nonprofits/3"},
		},
		"candid.org": {
			{Title: "Acme Family profile", Snippet: "funder profile", Link: "https://candid.org/acme"},
		},
	}}

	bundle := newAggregator(p).Gather(context.Background(), types.Candidate{FoundationName: "~Acme Family Foundation"}, testOrg)

	if len(bundle.Snippets) != 2 {
		t.Fatalf("snippets = %d, want 2 (one per responding source): %+v", len(bundle.Snippets), bundle.Snippets)
	}
	// First relevant hit wins, not the first hit.
	if bundle.Snippets[0].Source != "PROPUBLICA" || bundle.Snippets[0].URL != "https://projects.propublica.org/nonprofits/2" {
		t.Errorf("propublica pick = %+v", bundle.Snippets[0])
	}
	if bundle.Snippets[1].Source != "CANDID" {
		t.Errorf("second snippet = %+v", bundle.Snippets[1])
	}
	// A priority hit existed, so no general fallback query.
	for _, q := range p.queries {
		if strings.Contains(q, "OR site:") || strings.Contains(q, `"acme family" foundation grants`) {
			t.Errorf("unexpected general fallback query %q", q)
		}
	}
}

func TestGatherGeneralFallback(t *testing.T) {
	p := &mockProvider{hits: map[string][]Hit{
		"foundation grants": {
			{Title: "Acme Family Foundation awards", Snippet: "grants", Link: "https://acmefamily.org/grants"},
			{Title: "Unrelated directory", Snippet: "no match", Link: "https://example.com"},
			{Title: "Acme news", Snippet: "acme family gives", Link: "https://news.example.com/acme"},
			{Title: "Acme extra", Snippet: "acme family", Link: "https://extra.example.com/acme"},
		},
	}}

	cand := types.Candidate{FoundationName: "~Acme Family Foundation", Website: "https://acmefamily.org/apply"}
	bundle := newAggregator(p).Gather(context.Background(), cand, testOrg)

	// 4 priority queries + 1 general query.
	if len(p.queries) != 5 {
		t.Fatalf("queries = %d, want 5: %v", len(p.queries), p.queries)
	}
	general := p.queries[4]
	if !strings.Contains(general, `"acme family" foundation grants`) {
		t.Errorf("general query = %q", general)
	}
	if !strings.Contains(general, "NJ") {
		t.Errorf("general query missing region keywords: %q", general)
	}
	if !strings.Contains(general, "OR site:acmefamily.org") {
		t.Errorf("general query missing site clause: %q", general)
	}

	// Relevant general hits capped at 2, irrelevant one skipped.
	if len(bundle.Snippets) != 2 {
		t.Fatalf("snippets = %d, want 2: %+v", len(bundle.Snippets), bundle.Snippets)
	}
	for _, s := range bundle.Snippets {
		if s.Source != "GENERAL" {
			t.Errorf("snippet source = %q, want GENERAL", s.Source)
		}
	}
}

func TestGatherSingleSourceFailureDoesNotAbort(t *testing.T) {
	p := &mockProvider{
		errFor: "propublica",
		hits: map[string][]Hit{
			"grantedai.com": {{Title: "Acme Family grants", Snippet: "directory", Link: "https://grantedai.com/acme"}},
		},
	}

	bundle := newAggregator(p).Gather(context.Background(), types.Candidate{FoundationName: "Acme Family Foundation"}, testOrg)

	if len(bundle.Snippets) != 1 || bundle.Snippets[0].Source != "GRANTED" {
		t.Fatalf("snippets = %+v, want single GRANTED hit", bundle.Snippets)
	}
}

// --- digest ---

func TestDigestFormat(t *testing.T) {
	a := newAggregator(&mockProvider{})
	snips := []types.Snippet{
		{Source: "PROPUBLICA", Title: "Acme 990", Text: "filing data", URL: "https://projects.propublica.org/nonprofits/1"},
		{Source: "GENERAL", Title: "Acme news", Text: "recent grants", URL: "https://news.example.com/acme"},
	}

	got := a.digest(snips)
	want := "[PROPUBLICA] Acme 990\nfiling data\nURL: https://projects.propublica.org/nonprofits/1\n\n" +
		"[GENERAL] Acme news\nrecent grants\nURL: https://news.example.com/acme"
	if got != want {
		t.Errorf("digest =\n%q\nwant\n%q", got, want)
	}
}

func TestDigestCapsOversizedFirstBlock(t *testing.T) {
	a := NewAggregator(&mockProvider{}, types.SearchConfig{DigestMaxBytes: 100}, nil)
	snips := []types.Snippet{{
		Source: "GENERAL",
		Title:  "Big",
		Text:   strings.Repeat("€", 300), // multibyte; byte 100 lands mid-rune
		URL:    "https://example.com",
	}}

	got := a.digest(snips)
	if len(got) > 100 {
		t.Errorf("digest length = %d, want <= 100", len(got))
	}
	if !strings.HasPrefix(got, "[GENERAL] Big") {
		t.Errorf("digest lost its first block: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("digest truncation split a rune")
	}
}

func TestDigestEmptySentinel(t *testing.T) {
	a := newAggregator(&mockProvider{})
	if got := a.digest(nil); got != NoResults {
		t.Errorf("digest(nil) = %q, want %q", got, NoResults)
	}
}

func TestDigestCapped(t *testing.T) {
	a := NewAggregator(&mockProvider{}, types.SearchConfig{DigestMaxBytes: 200}, nil)
	var snips []types.Snippet
	for i := 0; i < 10; i++ {
		snips = append(snips, types.Snippet{
			Source: "GENERAL",
			Title:  fmt.Sprintf("Title %d", i),
			Text:   strings.Repeat("x", 80),
			URL:    fmt.Sprintf("https://example.com/%d", i),
		})
	}
	got := a.digest(snips)
	if len(got) > 200 {
		t.Errorf("digest length = %d, want <= 200", len(got))
	}
	if !strings.HasPrefix(got, "[GENERAL] Title 0") {
		t.Errorf("digest lost its first block: %q", got)
	}
}

// --- citations ---

func TestBuildCitations(t *testing.T) {
	snips := []types.Snippet{
		{Source: "PROPUBLICA", URL: "https://projects.propublica.org/nonprofits/1"},
		{Source: "GRANTED", URL: "https://grantedai.com/acme"},
		{Source: "CANDID", URL: "https://projects.propublica.org/nonprofits/1"}, // duplicate
		{Source: "CAUSEIQ", URL: "https://vertexaisearch.cloud.google.com/redirect/x"}, // denylisted
		{Source: "GENERAL", URL: "https://news.example.com/a"},
		{Source: "GENERAL", URL: "https://news.example.com/b"},
		{Source: "GENERAL", URL: "https://news.example.com/c"},
		{Source: "GENERAL", URL: "https://news.example.com/d"},
	}

	cites := buildCitations(snips)
	if len(cites) != 5 {
		t.Fatalf("citations = %d, want 5: %+v", len(cites), cites)
	}
	if cites[0].URL != "https://projects.propublica.org/nonprofits/1" || cites[0].Domain != "projects.propublica.org" {
		t.Errorf("first citation = %+v", cites[0])
	}
	seen := make(map[string]bool)
	for _, c := range cites {
		if seen[c.URL] {
			t.Errorf("duplicate URL %q", c.URL)
		}
		seen[c.URL] = true
		if types.IsInternalRedirect(c.URL) {
			t.Errorf("denylisted URL %q survived", c.URL)
		}
	}
}
