// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// internalRedirectHosts lists URL substrings that identify search-provider
// redirect links rather than real sources. They never appear in citations.
var internalRedirectHosts = []string{
	"vertexaisearch.cloud.google.com",
	"google.com/search",
}

// IsInternalRedirect reports whether url points at a known internal-redirect
// host rather than a citable source.
func IsInternalRedirect(url string) bool {
	for _, h := range internalRedirectHosts {
		if strings.Contains(url, h) {
			return true
		}
	}
	return false
}

// NewCitation builds a Citation from a full URL, deriving the bare domain
// label by stripping the scheme and path.
func NewCitation(url string) Citation {
	return Citation{Domain: DomainOf(url), URL: url}
}

// DomainOf strips the scheme and path from a URL, leaving the bare host
// ("https://candid.org/about" → "candid.org").
func DomainOf(url string) string {
	s := strings.TrimPrefix(url, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
