// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screen

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// maxRawRationale bounds how much raw response text is carried into the
// rationale when the response cannot be parsed.
const maxRawRationale = 500

// sourceCap bounds merged citations per decision.
const sourceCap = 5

// Resolution is the validated outcome of one reasoning response, ready to
// become a Decision.
type Resolution struct {
	Classification types.Classification
	Rationale      string
	Confidence     float64
	NextActionDate *time.Time
	Sources        []types.Citation
}

// Flags are the decision inputs recovered from a structured rationale.
type Flags struct {
	HardRed    bool
	SoftRed    bool // invite-only (R1b)
	GreenCount int
}

// Classify applies the decision table. The table is total and ordered; the
// first matching row wins.
func Classify(f Flags, threshold int) types.Classification {
	switch {
	case f.HardRed:
		return types.ClassRed
	case f.SoftRed && f.GreenCount == 0:
		return types.ClassRed
	case f.SoftRed:
		return types.ClassYellow
	case f.GreenCount >= threshold:
		return types.ClassGreen
	default:
		return types.ClassYellow
	}
}

// rawAnswer is the JSON contract the reasoning service is asked to emit.
type rawAnswer struct {
	Classification      string  `json:"classification"`
	Rationale           string  `json:"rationale"`
	Confidence          float64 `json:"confidence"`
	NextApplicationDate *string `json:"next_application_date"`
}

var (
	// greenCountPattern matches "Green flags: 3/8".
	greenCountPattern = regexp.MustCompile(`(?i)green flags:\s*(\d+)\s*/\s*(\d+)`)
	// redSegmentPattern captures the text between the red-flag list marker
	// and the green-flag count.
	redSegmentPattern = regexp.MustCompile(`(?is)red flags:\s*(.*?)green flags:`)
	// redLabelPattern matches fired rule labels inside the red segment.
	redLabelPattern = regexp.MustCompile(`(?i)\bR(?:-size|\d+[ab]?)\b`)
)

// parseFlags recovers the fired red-flag labels and the green count from the
// structured rationale. ok is false when the rationale does not carry both
// markers, in which case the caller cannot re-apply the decision table.
func parseFlags(rationale string) (Flags, bool) {
	gm := greenCountPattern.FindStringSubmatch(rationale)
	rm := redSegmentPattern.FindStringSubmatch(rationale)
	if gm == nil || rm == nil {
		return Flags{}, false
	}

	f := Flags{}
	f.GreenCount, _ = strconv.Atoi(gm[1])

	for _, label := range redLabelPattern.FindAllString(rm[1], -1) {
		if strings.EqualFold(label, types.InviteOnlyLabel) {
			f.SoftRed = true
		} else {
			f.HardRed = true
		}
	}
	return f, true
}

// extractJSON returns the substring between the first '{' and the last '}'.
// Reasoning responses routinely wrap the JSON object in prose or markdown
// fences, so decoding the whole text directly is not an option.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Resolve turns a raw reasoning response into a validated Resolution. The
// reported classification is never trusted as-is: whenever the rationale
// carries the structured flag markers, the decision table is re-applied and
// its answer overrides the reported one. Unusable responses degrade to a
// YELLOW resolution with confidence 0 rather than failing the candidate.
func Resolve(cfg *types.RuleConfiguration, resp reason.Response, ev types.EvidenceBundle) Resolution {
	sources := MergeSources(ev.Citations, resp.Citations)

	jsonStr, ok := extractJSON(resp.Text)
	if !ok {
		return fallbackResolution(resp.Text, sources)
	}
	var raw rawAnswer
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return fallbackResolution(resp.Text, sources)
	}

	reported := types.Classification(strings.ToUpper(strings.TrimSpace(raw.Classification)))
	flags, parsed := parseFlags(raw.Rationale)

	var class types.Classification
	switch {
	case parsed:
		class = Classify(flags, cfg.GreenThreshold)
	case reported.Valid():
		class = reported
	default:
		return fallbackResolution(resp.Text, sources)
	}

	return Resolution{
		Classification: class,
		Rationale:      raw.Rationale,
		Confidence:     clamp01(raw.Confidence),
		NextActionDate: parseActionDate(raw.NextApplicationDate),
		Sources:        sources,
	}
}

// fallbackResolution is the degraded outcome for responses that cannot be
// decoded. The truncated raw text is kept as the rationale for the audit
// trail.
func fallbackResolution(text string, sources []types.Citation) Resolution {
	return Resolution{
		Classification: types.ClassYellow,
		Rationale:      truncate(strings.TrimSpace(text), maxRawRationale),
		Confidence:     0.0,
		Sources:        sources,
	}
}

// MergeSources combines evidence citations with reasoning-grounding
// citations, evidence first, deduplicated by URL and capped at five. When
// reasoning citations exist, at least one slot is held for them so grounding
// links are never fully crowded out by evidence links.
func MergeSources(evidence, reasoning []types.Citation) []types.Citation {
	evLimit := sourceCap
	if len(reasoning) > 0 {
		evLimit = sourceCap - 1
	}

	seen := make(map[string]bool)
	var merged []types.Citation
	for _, c := range evidence {
		if len(merged) >= evLimit {
			break
		}
		if c.URL == "" || seen[c.URL] || types.IsInternalRedirect(c.URL) {
			continue
		}
		seen[c.URL] = true
		merged = append(merged, c)
	}
	for _, c := range reasoning {
		if len(merged) >= sourceCap {
			break
		}
		if c.URL == "" || seen[c.URL] || types.IsInternalRedirect(c.URL) {
			continue
		}
		seen[c.URL] = true
		merged = append(merged, c)
	}
	return merged
}

// parseActionDate accepts a YYYY-MM-DD string; anything else, including
// null, yields no date.
func parseActionDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &t
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// truncate caps s at n bytes without splitting a multibyte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
