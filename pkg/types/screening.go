// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the grant-screener pipeline.
package types

import "time"

// Classification is the tri-state screening outcome. The domain uses color
// names: RED rejects a funder, YELLOW routes it to manual review, GREEN marks
// it a priority fit. The strings double as the JSON contract values exchanged
// with the reasoning service and as the sheet color keys.
type Classification string

const (
	ClassRed    Classification = "RED"
	ClassYellow Classification = "YELLOW"
	ClassGreen  Classification = "GREEN"
)

// Valid reports whether c is one of the three recognized classifications.
func (c Classification) Valid() bool {
	return c == ClassRed || c == ClassYellow || c == ClassGreen
}

// Rule is a single labeled screening criterion, e.g.
// "R2. Only funds a state that is not NJ" or "G5. Age group: K-12 or youth".
type Rule struct {
	// Label is the short identifier (R1a, R1b, R2.., G1..).
	Label string `json:"label" yaml:"label"`

	// Text is the criterion itself, phrased for the reasoning service.
	Text string `json:"text" yaml:"text"`
}

// Reserved red-flag labels. HardCloseLabel disqualifies unconditionally;
// InviteOnlyLabel is a soft flag whose effect depends on the green count.
const (
	HardCloseLabel  = "R1a"
	InviteOnlyLabel = "R1b"
)

// Organization describes the nonprofit the screening runs on behalf of.
type Organization struct {
	Name             string `json:"name" yaml:"name"`
	Mission          string `json:"mission" yaml:"mission"`
	Region           string `json:"region" yaml:"region"`
	TargetLocalities string `json:"target_localities" yaml:"target_localities"`
}

// GrantSize bounds the acceptable award range in dollars. Zero means
// unbounded on that side.
type GrantSize struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Bounded reports whether either side of the range is set.
func (g GrantSize) Bounded() bool {
	return g.Min != 0 || g.Max != 0
}

// RuleConfiguration is the versioned screening rule set. It is loaded once
// (from screener-config.yaml or the embedded default) and never mutated
// during a run.
type RuleConfiguration struct {
	Org            Organization `json:"org" yaml:"org"`
	GrantSize      GrantSize    `json:"grant_size" yaml:"grant_size"`
	RedFlags       []Rule       `json:"red_flags" yaml:"red_flags"`
	GreenFlags     []Rule       `json:"green_flags" yaml:"green_flags"`
	GreenThreshold int          `json:"green_threshold" yaml:"green_threshold"`
	CustomContext  string       `json:"custom_context,omitempty" yaml:"custom_context,omitempty"`
}

// Candidate is one backlog entry: a funder to screen.
type Candidate struct {
	// ID is the backlog record identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the backlog display name, often "Foundation Name - Date".
	Name string `json:"name" yaml:"name"`

	// FoundationName is the funder name with the leading sort marker
	// stripped. This is the name used for searching and idempotency checks.
	FoundationName string `json:"foundation_name" yaml:"foundation_name"`

	// Amount is the requested or typical award size, if known.
	Amount *float64 `json:"amount,omitempty" yaml:"amount,omitempty"`

	Website   string `json:"website,omitempty" yaml:"website,omitempty"`
	FocusArea string `json:"focus_area,omitempty" yaml:"focus_area,omitempty"`
	Stage     string `json:"stage" yaml:"stage"`
}

// Snippet is one retained search hit from an evidence source.
type Snippet struct {
	// Source identifies the evidence source ("PROPUBLICA", "GENERAL", ...).
	Source string `json:"source" yaml:"source"`

	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	Text  string `json:"text" yaml:"text"`
}

// Citation is an auditable source reference attached to a Decision.
type Citation struct {
	// Domain is the bare host label shown to reviewers ("candid.org").
	Domain string `json:"domain" yaml:"domain"`

	// URL is the full link.
	URL string `json:"url" yaml:"url"`
}

// EvidenceBundle is the per-candidate evidence gathered before reasoning.
type EvidenceBundle struct {
	Snippets []Snippet `json:"snippets" yaml:"snippets"`

	// Digest is the concatenated snippet text fed to the reasoning prompt.
	// When no evidence was found it holds the sentinel "No results found."
	Digest string `json:"digest" yaml:"digest"`

	// Citations holds up to five deduplicated source URLs, priority
	// sources first.
	Citations []Citation `json:"citations" yaml:"citations"`
}

// Decision is the final screening output for one candidate. It is built once
// per candidate per run and never mutated afterwards; sinks only format it.
type Decision struct {
	Candidate      Candidate      `json:"candidate" yaml:"candidate"`
	Classification Classification `json:"classification" yaml:"classification"`

	// Rationale is the structured explanation: fired red flags (or "None"),
	// the green count out of total with fired labels, one context sentence.
	Rationale string `json:"rationale" yaml:"rationale"`

	// Confidence is the reasoning service's self-assessment in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// NextActionDate is the next application window, when one was found.
	NextActionDate *time.Time `json:"next_action_date,omitempty" yaml:"next_action_date,omitempty"`

	// Sources merges evidence citations with reasoning-supplied ones,
	// capped at five, priority sources first.
	Sources []Citation `json:"sources" yaml:"sources"`
}
