// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/grant-screener/internal/evidence"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// sizeRuleLabel names the red flag synthesized from configured grant-size
// bounds. The resolver treats it like any other hard red flag.
const sizeRuleLabel = "R-size"

// screeningPromptTmpl renders the chain-of-thought evaluation request. The
// decision rule in STEP 3 mirrors the resolver's table verbatim so the
// reasoning service's own classification stays consistent with the engine's
// re-validation.
var screeningPromptTmpl = template.Must(template.New("screening").Parse(`You are an expert Grant Screener for {{.OrgName}}, a nonprofit {{.OrgMission}}.
{{- if .Custom}}
Additional context: {{.Custom}}
{{- end}}

══════════════════════════════════════════
GRANT TO SCREEN
══════════════════════════════════════════
Foundation : {{.Foundation}}
Org Name   : {{.RecordName}}
Website    : {{.Website}}
Amount     : {{.Amount}}

{{.EvidenceSection}}

══════════════════════════════════════════
STEP 1 — CHECK RED FLAGS
══════════════════════════════════════════
Go through each flag. Mark YES if found, NO if not:
{{- range .RedFlags}}
{{.}}
{{- end}}
{{- if .SizeRule}}
{{.SizeRule}}
{{- end}}

Rules:
→ R1a triggered → RED (hard, no workaround)
→ R1b triggered (invite-only) + any green flags → YELLOW (Inquiry Required)
→ R1b triggered + zero green flags → RED
→ Any other red flag → RED

══════════════════════════════════════════
STEP 2 — COUNT GREEN FLAGS (if no hard red flags)
══════════════════════════════════════════
Evaluate with YES / NO / UNCLEAR and cite evidence:
{{- range .GreenFlags}}
{{.}}
{{- end}}

Count YES only. UNCLEAR = NO.

══════════════════════════════════════════
STEP 3 — CLASSIFY
══════════════════════════════════════════
Decision rule (strict):
• RED    → any hard red flag (R1a or R2+)
• YELLOW → R1b (invite-only) + green >= 1
           OR 0 red flags AND green_count < {{.Threshold}}
• GREEN  → 0 red flags AND green_count >= {{.Threshold}}

Rationale must include:
- Which R-flags triggered (or "None")
- Green flag count: "Green flags: X/{{.NGreen}} (G1✓ G2✓...)"
- One plain-English sentence of context

══════════════════════════════════════════
OUTPUT — ONLY this JSON:
══════════════════════════════════════════
{
    "classification": "RED" | "YELLOW" | "GREEN",
    "rationale": "Red flags: <list or None>. Green flags: <X>/{{.NGreen}} (<which>). <sentence>",
    "confidence": 0.0 to 1.0,
    "next_application_date": "YYYY-MM-DD" or null
}
`))

// promptData is the fully rendered template input.
type promptData struct {
	OrgName         string
	OrgMission      string
	Custom          string
	Foundation      string
	RecordName      string
	Website         string
	Amount          string
	EvidenceSection string
	RedFlags        []string
	SizeRule        string
	GreenFlags      []string
	Threshold       int
	NGreen          int
}

// RenderPrompt builds the single evaluation request for one candidate from
// the rule configuration and the evidence digest.
func RenderPrompt(cfg *types.RuleConfiguration, cand types.Candidate, digest string) (string, error) {
	data := promptData{
		OrgName:         cfg.Org.Name,
		OrgMission:      cfg.Org.Mission,
		Custom:          cfg.CustomContext,
		Foundation:      cand.FoundationName,
		RecordName:      cand.Name,
		Website:         orNA(cand.Website),
		Amount:          amountString(cand.Amount),
		EvidenceSection: evidenceSection(digest),
		RedFlags:        ruleLines(cfg.RedFlags),
		SizeRule:        sizeRule(cfg.GrantSize),
		GreenFlags:      ruleLines(cfg.GreenFlags),
		Threshold:       cfg.GreenThreshold,
		NGreen:          len(cfg.GreenFlags),
	}

	var buf bytes.Buffer
	if err := screeningPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering screening prompt: %w", err)
	}
	return buf.String(), nil
}

// evidenceSection wraps the digest for the prompt. On the empty-digest
// sentinel the model is told to fall back to its own search tool.
func evidenceSection(digest string) string {
	if digest == "" || digest == evidence.NoResults {
		return "No priority-source results found. Use your Google Search tool to research."
	}
	return "PRE-FETCHED SEARCH RESULTS (from ProPublica & Granted - highest priority):\n" +
		"---\n" + digest + "\n---\n" +
		"Use the above as your PRIMARY evidence. Supplement with your own Google Search\n" +
		"ONLY if the above results are insufficient."
}

// sizeRule synthesizes the extra red flag when a grant-size bound is set.
func sizeRule(size types.GrantSize) string {
	if !size.Bounded() {
		return ""
	}
	return fmt.Sprintf("%s. Grant size outside $%s–$%s", sizeRuleLabel, dollars(size.Min), dollars(size.Max))
}

func ruleLines(rules []types.Rule) []string {
	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = r.Label + ". " + r.Text
	}
	return lines
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func amountString(amount *float64) string {
	if amount == nil {
		return "N/A"
	}
	return "$" + dollars(*amount)
}

// dollars formats a dollar figure with thousands separators ("50000" → "50,000").
func dollars(f float64) string {
	s := strconv.FormatFloat(f, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
