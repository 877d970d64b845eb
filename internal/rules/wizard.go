// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// Answers holds the free-text wizard responses that the reasoning service
// turns into a structured rule configuration.
type Answers struct {
	OrgName       string `json:"org_name"`
	OrgMission    string `json:"org_mission"`
	OrgRegion     string `json:"org_region"`
	OrgLocalities string `json:"org_localities"`
	GrantFocus    string `json:"grant_focus"`
	GrantMin      string `json:"grant_min"`
	GrantMax      string `json:"grant_max"`
	TargetGroup   string `json:"target_group"`
	EquityFocus   string `json:"equity_focus"`
	RedFlagsRaw   string `json:"red_flags_raw"`
	GreenFlagsRaw string `json:"green_flags_raw"`
}

// wireConfig is the JSON shape the builder prompt asks for. Flags arrive as
// "LABEL. text" strings and are parsed into (label, text) pairs afterwards.
type wireConfig struct {
	Org struct {
		Name         string `json:"name"`
		Mission      string `json:"mission"`
		State        string `json:"state"`
		TargetCities string `json:"target_cities"`
	} `json:"org"`
	GrantSize struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"grant_size"`
	RedFlags       []string `json:"red_flags"`
	GreenFlags     []string `json:"green_flags"`
	GreenThreshold int      `json:"green_threshold"`
	CustomContext  string   `json:"custom_context"`
}

var builderPromptTmpl = template.Must(template.New("builder").Parse(`You are a grant screening configuration builder.

A user has described their nonprofit and grant screening requirements below.
Your job is to convert their answers into a structured JSON configuration
that will be used to build a chain-of-thought grant screening prompt.

USER ANSWERS:
{{.Answers}}

OUTPUT a valid JSON object with this exact structure:
{
  "org": {"name": "...", "mission": "...", "state": "...", "target_cities": "..."},
  "grant_size": {"min": 0, "max": 0},
  "red_flags": ["R1a. <hard disqualifier>", "R1b. <soft flag: invitation-only>", "R2. <another disqualifier>", "..."],
  "green_flags": ["G1. <positive signal>", "G2. <another positive signal>", "..."],
  "green_threshold": 4,
  "custom_context": "One sentence of additional context about this org's needs"
}

Rules:
- Always include R1a (not accepting / permanently closed → hard RED) and
  R1b (invitation only → soft flag) as the first two red flags.
- Generate 4–8 additional red flags (R2–R8) from the user's answers.
- Generate 6–10 green flags (G1–G10) from the user's answers.
- green_threshold is typically 4 (GREEN if >= threshold, YELLOW if < threshold).
- Infer grant_size min/max from user input; use 0 if not specified.
- Output ONLY the JSON, no extra text.
`))

var regeneratePromptTmpl = template.Must(template.New("regenerate").Parse(`You are a grant screening configuration builder.
The user wants to update the red and green flag rules for their org: {{.OrgName}}.

Their org mission: {{.Mission}}
State: {{.Region}}

New disqualifiers (user input): {{.RedInput}}
New positive signals (user input): {{.GreenInput}}

Current red flags: {{.CurrentRed}}
Current green flags: {{.CurrentGreen}}

Generate UPDATED red_flags and green_flags lists.
Always keep R1a (permanently closed → hard RED) and R1b (invitation only → soft flag) as first two red flags.
Incorporate the user's new input. Keep any existing rules that still make sense.

Output ONLY valid JSON:
{
  "red_flags": ["R1a. ...", "R1b. ...", "R2. ...", "..."],
  "green_flags": ["G1. ...", "G2. ...", "..."]
}
`))

// BuildFromAnswers asks the reasoning service to convert wizard answers into
// a validated RuleConfiguration.
func BuildFromAnswers(ctx context.Context, backend reason.Backend, answers Answers) (*types.RuleConfiguration, error) {
	blob, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling answers: %w", err)
	}

	var buf bytes.Buffer
	if err := builderPromptTmpl.Execute(&buf, struct{ Answers string }{string(blob)}); err != nil {
		return nil, fmt.Errorf("rendering builder prompt: %w", err)
	}

	resp, err := backend.Generate(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("building configuration: %w", err)
	}

	var wire wireConfig
	if err := json.Unmarshal([]byte(StripFences(resp.Text)), &wire); err != nil {
		return nil, fmt.Errorf("parsing builder response: %w", err)
	}

	cfg, err := fromWire(wire)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("builder produced invalid configuration: %w", err)
	}
	return cfg, nil
}

// RegenerateFlags asks the reasoning service to rewrite only the red and
// green flag lists, keeping the rest of cfg. The returned configuration is a
// new value; cfg is not mutated.
func RegenerateFlags(ctx context.Context, backend reason.Backend, cfg *types.RuleConfiguration, redInput, greenInput string) (*types.RuleConfiguration, error) {
	currentRed, _ := json.Marshal(ruleStrings(cfg.RedFlags))
	currentGreen, _ := json.Marshal(ruleStrings(cfg.GreenFlags))

	var buf bytes.Buffer
	err := regeneratePromptTmpl.Execute(&buf, map[string]string{
		"OrgName":      cfg.Org.Name,
		"Mission":      cfg.Org.Mission,
		"Region":       cfg.Org.Region,
		"RedInput":     redInput,
		"GreenInput":   greenInput,
		"CurrentRed":   string(currentRed),
		"CurrentGreen": string(currentGreen),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering regenerate prompt: %w", err)
	}

	resp, err := backend.Generate(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("regenerating rules: %w", err)
	}

	var wire struct {
		RedFlags   []string `json:"red_flags"`
		GreenFlags []string `json:"green_flags"`
	}
	if err := json.Unmarshal([]byte(StripFences(resp.Text)), &wire); err != nil {
		return nil, fmt.Errorf("parsing regenerate response: %w", err)
	}

	red, err := ParseRules(wire.RedFlags)
	if err != nil {
		return nil, fmt.Errorf("regenerated red flags: %w", err)
	}
	green, err := ParseRules(wire.GreenFlags)
	if err != nil {
		return nil, fmt.Errorf("regenerated green flags: %w", err)
	}

	updated := *cfg
	updated.RedFlags = red
	updated.GreenFlags = green
	if err := Validate(&updated); err != nil {
		return nil, fmt.Errorf("regenerated configuration invalid: %w", err)
	}
	return &updated, nil
}

func fromWire(wire wireConfig) (*types.RuleConfiguration, error) {
	red, err := ParseRules(wire.RedFlags)
	if err != nil {
		return nil, fmt.Errorf("red flags: %w", err)
	}
	green, err := ParseRules(wire.GreenFlags)
	if err != nil {
		return nil, fmt.Errorf("green flags: %w", err)
	}

	threshold := wire.GreenThreshold
	if threshold == 0 {
		threshold = DefaultGreenThreshold
	}

	return &types.RuleConfiguration{
		Org: types.Organization{
			Name:             wire.Org.Name,
			Mission:          wire.Org.Mission,
			Region:           wire.Org.State,
			TargetLocalities: wire.Org.TargetCities,
		},
		GrantSize:      types.GrantSize{Min: wire.GrantSize.Min, Max: wire.GrantSize.Max},
		RedFlags:       red,
		GreenFlags:     green,
		GreenThreshold: threshold,
		CustomContext:  wire.CustomContext,
	}, nil
}

func ruleStrings(rs []types.Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label + ". " + r.Text
	}
	return out
}

// StripFences removes surrounding Markdown code-fence markers from a model
// response, tolerating an optional "json" language tag.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "json")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
