// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence gathers multi-source search snippets about a candidate
// funder and folds them into a deduplicated, priority-ordered EvidenceBundle.
// Filing registries and grant directories are queried first; a general web
// search runs only when every priority source comes back empty.
package evidence

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// NoResults is the digest sentinel when no evidence was found. The prompt
// formatter switches to "use your own search tool" wording on this value.
const NoResults = "No results found."

// citationCap bounds the citations carried on a bundle.
const citationCap = 5

// Hit is one raw search result from the provider.
type Hit struct {
	Title   string
	Snippet string
	Link    string
}

// Provider executes a single web search query. The production implementation
// is the SerpAPI client; tests supply mocks.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]Hit, error)
}

// prioritySources are the tier-1 evidence sources, queried in order via
// site-restricted searches. ProPublica carries 990 filing data, the others
// are grant directories.
var prioritySources = []struct {
	label  string
	filter string
}{
	{"PROPUBLICA", "site:projects.propublica.org/nonprofits"},
	{"GRANTED", "site:grantedai.com"},
	{"CANDID", "site:candid.org"},
	{"CAUSEIQ", "site:causeiq.com"},
}

// generalLabel tags tier-2 fallback hits.
const generalLabel = "GENERAL"

// noiseTokens are stripped from funder names before searching, so queries hit
// the distinctive part of the name rather than legal boilerplate.
var noiseTokens = map[string]bool{
	"inc": true, "c/o": true, "the": true, "llc": true,
	"ltd": true, "foundation": true, "trust": true, "corp": true,
}

// Normalize strips the backlog sort marker and legal noise tokens from a
// funder name. When stripping would remove everything, the input name wins.
// Normalize is idempotent.
func Normalize(name string) string {
	base := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(name), "~"))
	var kept []string
	for _, tok := range strings.Fields(strings.ToLower(base)) {
		if !noiseTokens[tok] {
			kept = append(kept, tok)
		}
	}
	result := strings.Join(kept, " ")
	if result == "" {
		return base
	}
	return result
}

// searchTokens returns the normalized-name tokens usable for relevance
// checks: anything longer than three characters.
func searchTokens(normalized string) []string {
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) > 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// isRelevant reports whether a hit's title or snippet mentions any name
// token. With no usable tokens (short or generic names) every hit counts as
// relevant, so over-filtering cannot blank out the evidence.
func isRelevant(h Hit, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	text := strings.ToLower(h.Title + " " + h.Snippet)
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// Aggregator fans a candidate's name out to the priority sources and builds
// the EvidenceBundle for the reasoning prompt.
type Aggregator struct {
	provider Provider
	cfg      types.SearchConfig
	log      *zap.Logger
}

// NewAggregator wires a search provider with defaults applied: fan-out 5,
// general-hit cap 2, digest cap 8 KiB.
func NewAggregator(provider Provider, cfg types.SearchConfig, log *zap.Logger) *Aggregator {
	if cfg.FanOut <= 0 {
		cfg.FanOut = 5
	}
	if cfg.GeneralHits <= 0 {
		cfg.GeneralHits = 2
	}
	if cfg.DigestMaxBytes <= 0 {
		cfg.DigestMaxBytes = 8192
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{provider: provider, cfg: cfg, log: log}
}

// Gather queries each priority source for the candidate, keeping the single
// most relevant hit per source, and falls back to one general-web query when
// every priority source came back empty. A failed query to any one source is
// logged and treated as zero hits for that source; Gather itself never fails.
func (a *Aggregator) Gather(ctx context.Context, cand types.Candidate, org types.Organization) types.EvidenceBundle {
	clean := Normalize(cand.FoundationName)
	tokens := searchTokens(clean)

	var snippets []types.Snippet
	for _, src := range prioritySources {
		hits, err := a.provider.Search(ctx, clean+" "+src.filter, a.cfg.FanOut)
		if err != nil {
			a.log.Warn("evidence source failed",
				zap.String("source", src.label),
				zap.String("candidate", cand.FoundationName),
				zap.Error(err))
			continue
		}
		for _, h := range hits {
			if isRelevant(h, tokens) {
				snippets = append(snippets, types.Snippet{
					Source: src.label, Title: h.Title, URL: h.Link, Text: h.Snippet,
				})
				break
			}
		}
	}

	// General fallback only when every priority source struck out.
	if len(snippets) == 0 {
		query := generalQuery(clean, cand.Website, org)
		hits, err := a.provider.Search(ctx, query, a.cfg.FanOut)
		if err != nil {
			a.log.Warn("general fallback failed",
				zap.String("candidate", cand.FoundationName),
				zap.Error(err))
		}
		kept := 0
		for _, h := range hits {
			if kept >= a.cfg.GeneralHits {
				break
			}
			if isRelevant(h, tokens) {
				snippets = append(snippets, types.Snippet{
					Source: generalLabel, Title: h.Title, URL: h.Link, Text: h.Snippet,
				})
				kept++
			}
		}
	}

	return types.EvidenceBundle{
		Snippets:  snippets,
		Digest:    a.digest(snippets),
		Citations: buildCitations(snippets),
	}
}

// generalQuery combines the exact-phrase name with grant keywords for the
// org's region and, when the candidate's website is known, an OR clause
// restricted to that domain.
func generalQuery(clean, website string, org types.Organization) string {
	q := fmt.Sprintf("%q foundation grants", clean)
	if org.Region != "" {
		q += " " + org.Region
	}
	if website != "" {
		q += " OR site:" + types.DomainOf(website)
	}
	return q
}

// digest renders the retained snippets as newline-joined source blocks,
// capped so the reasoning prompt cannot grow without bound.
func (a *Aggregator) digest(snippets []types.Snippet) string {
	if len(snippets) == 0 {
		return NoResults
	}

	var b strings.Builder
	for _, s := range snippets {
		block := fmt.Sprintf("[%s] %s\n%s\nURL: %s", s.Source, s.Title, s.Text, s.URL)
		if b.Len() == 0 {
			b.WriteString(truncateRunes(block, a.cfg.DigestMaxBytes))
			continue
		}
		if b.Len()+len(block)+2 > a.cfg.DigestMaxBytes {
			break
		}
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	if b.Len() == 0 {
		return NoResults
	}
	return b.String()
}

// truncateRunes caps s at n bytes without splitting a multibyte rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// buildCitations extracts up to five deduplicated citations from the
// snippets, skipping internal redirect links. Snippet order already puts
// priority sources first.
func buildCitations(snippets []types.Snippet) []types.Citation {
	seen := make(map[string]bool)
	var cites []types.Citation
	for _, s := range snippets {
		if s.URL == "" || seen[s.URL] || types.IsInternalRedirect(s.URL) {
			continue
		}
		seen[s.URL] = true
		cites = append(cites, types.NewCitation(s.URL))
		if len(cites) == citationCap {
			break
		}
	}
	return cites
}
