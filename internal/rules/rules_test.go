// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	response string
	err      error
	prompts  []string
}

func (m *mockBackend) Generate(_ context.Context, prompt string) (reason.Response, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return reason.Response{}, m.err
	}
	return reason.Response{Text: m.response}, nil
}

// --- Validate ---

func TestValidateDefault(t *testing.T) {
	cfg := Default(types.Organization{})
	if err := Validate(cfg); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	if cfg.GreenThreshold != DefaultGreenThreshold {
		t.Errorf("threshold = %d, want %d", cfg.GreenThreshold, DefaultGreenThreshold)
	}
	if len(cfg.GreenFlags) != 8 || len(cfg.RedFlags) != 9 {
		t.Errorf("flag counts = %d red, %d green", len(cfg.RedFlags), len(cfg.GreenFlags))
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *types.RuleConfiguration { return Default(types.Organization{}) }

	tests := []struct {
		name    string
		mutate  func(*types.RuleConfiguration)
		wantErr string
	}{
		{
			name:    "threshold above green count makes GREEN unreachable",
			mutate:  func(c *types.RuleConfiguration) { c.GreenThreshold = len(c.GreenFlags) + 1 },
			wantErr: "unreachable",
		},
		{
			name:    "threshold below one",
			mutate:  func(c *types.RuleConfiguration) { c.GreenThreshold = 0 },
			wantErr: "at least 1",
		},
		{
			name:    "missing R1a",
			mutate:  func(c *types.RuleConfiguration) { c.RedFlags = c.RedFlags[1:] },
			wantErr: "R1a",
		},
		{
			name: "missing R1b",
			mutate: func(c *types.RuleConfiguration) {
				c.RedFlags = append(c.RedFlags[:1], c.RedFlags[2:]...)
			},
			wantErr: "R1b",
		},
		{
			name: "duplicate red label",
			mutate: func(c *types.RuleConfiguration) {
				c.RedFlags = append(c.RedFlags, types.Rule{Label: "R2", Text: "dup"})
			},
			wantErr: "duplicate red",
		},
		{
			name: "duplicate green label",
			mutate: func(c *types.RuleConfiguration) {
				c.GreenFlags = append(c.GreenFlags, types.Rule{Label: "G1", Text: "dup"})
			},
			wantErr: "duplicate green",
		},
		{
			name:    "no green flags",
			mutate:  func(c *types.RuleConfiguration) { c.GreenFlags = nil },
			wantErr: "no green flags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

// --- ParseRule ---

func TestParseRule(t *testing.T) {
	tests := []struct {
		in        string
		wantLabel string
		wantText  string
		wantErr   bool
	}{
		{"R1a. Status says permanently closed", "R1a", "Status says permanently closed", false},
		{"  G7.  Typical grant $5,000–$50,000 ", "G7", "Typical grant $5,000–$50,000", false},
		{"R2. Only funds colleges. No youth.", "R2", "Only funds colleges. No youth.", false},
		{"no label here", "", "", true},
		{"R3.", "", "", true},
	}
	for _, tt := range tests {
		r, err := ParseRule(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRule(%q) = %+v, want error", tt.in, r)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRule(%q): %v", tt.in, err)
			continue
		}
		if r.Label != tt.wantLabel || r.Text != tt.wantText {
			t.Errorf("ParseRule(%q) = %q/%q, want %q/%q", tt.in, r.Label, r.Text, tt.wantLabel, tt.wantText)
		}
	}
}

// --- Load / Save ---

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screener-config.yaml")
	cfg := Default(types.Organization{Name: "Code Club", Mission: "teaching kids to code", Region: "MA", TargetLocalities: "Boston, Lowell"})
	cfg.GrantSize = types.GrantSize{Min: 5000, Max: 50000}
	cfg.CustomContext = "Prefers funders with simple applications."

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Org.Name != "Code Club" || loaded.GrantSize.Max != 50000 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if len(loaded.RedFlags) != len(cfg.RedFlags) || len(loaded.GreenFlags) != len(cfg.GreenFlags) {
		t.Errorf("round trip lost flags")
	}
	if loaded.RedFlags[0].Label != types.HardCloseLabel {
		t.Errorf("first red flag = %q, want %q", loaded.RedFlags[0].Label, types.HardCloseLabel)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default(types.Organization{})
	cfg.GreenThreshold = 99
	if err := Save(filepath.Join(t.TempDir(), "bad.yaml"), cfg); err == nil {
		t.Fatal("Save accepted an unreachable threshold")
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	// Missing file falls back to the embedded default.
	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"), types.Organization{Region: "TX"})
	if err != nil {
		t.Fatalf("LoadOrDefault(missing): %v", err)
	}
	if cfg.Org.Region != "TX" {
		t.Errorf("Region = %q, want TX", cfg.Org.Region)
	}

	// Existing file wins over the default.
	path := filepath.Join(dir, "screener-config.yaml")
	custom := Default(types.Organization{Name: "Custom Org"})
	if err := Save(path, custom); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err = LoadOrDefault(path, types.Organization{})
	if err != nil {
		t.Fatalf("LoadOrDefault(existing): %v", err)
	}
	if cfg.Org.Name != "Custom Org" {
		t.Errorf("Name = %q, want Custom Org", cfg.Org.Name)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("red_flags: [unbalanced"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

// --- StripFences ---

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- wizard builder ---

const builderResponse = "```json\n" + `{
  "org": {"name": "River Arts", "mission": "arts programs for teens", "state": "OH", "target_cities": "Columbus"},
  "grant_size": {"min": 1000, "max": 25000},
  "red_flags": [
    "R1a. Status explicitly says not accepting applications or permanently closed.",
    "R1b. Status says invitation only.",
    "R2. Only funds outside Ohio.",
    "R3. No arts funding in the last two years."
  ],
  "green_flags": [
    "G1. Mission mentions arts education.",
    "G2. Past grantees include youth arts programs.",
    "G3. Based in or funds Ohio.",
    "G4. Typical grant $1,000-$25,000.",
    "G5. Grants awarded in the last 12 months."
  ],
  "green_threshold": 3,
  "custom_context": "Focus on after-school programming."
}` + "\n```"

func TestBuildFromAnswers(t *testing.T) {
	backend := &mockBackend{response: builderResponse}

	cfg, err := BuildFromAnswers(context.Background(), backend, Answers{
		OrgName:    "River Arts",
		OrgMission: "arts programs for teens",
		OrgRegion:  "OH",
	})
	if err != nil {
		t.Fatalf("BuildFromAnswers: %v", err)
	}

	if cfg.Org.Region != "OH" {
		t.Errorf("Region = %q, want OH", cfg.Org.Region)
	}
	if cfg.GreenThreshold != 3 {
		t.Errorf("threshold = %d, want 3", cfg.GreenThreshold)
	}
	if cfg.RedFlags[0].Label != types.HardCloseLabel || cfg.RedFlags[1].Label != types.InviteOnlyLabel {
		t.Errorf("reserved labels not first: %+v", cfg.RedFlags[:2])
	}
	if cfg.GrantSize.Max != 25000 {
		t.Errorf("GrantSize.Max = %v, want 25000", cfg.GrantSize.Max)
	}
	if len(backend.prompts) != 1 || !strings.Contains(backend.prompts[0], "River Arts") {
		t.Errorf("builder prompt did not carry the answers")
	}
}

func TestBuildFromAnswersRejectsBadJSON(t *testing.T) {
	backend := &mockBackend{response: "I could not produce a configuration."}
	if _, err := BuildFromAnswers(context.Background(), backend, Answers{}); err == nil {
		t.Fatal("BuildFromAnswers accepted a non-JSON response")
	}
}

func TestRegenerateFlags(t *testing.T) {
	backend := &mockBackend{response: `{
		"red_flags": ["R1a. Closed.", "R1b. Invitation only.", "R2. Wrong state."],
		"green_flags": ["G1. STEM mission.", "G2. Recent grants.", "G3. Funds NJ.", "G4. Youth focus."]
	}`}

	cfg := Default(types.Organization{})
	updated, err := RegenerateFlags(context.Background(), backend, cfg, "wrong state", "STEM, recent")
	if err != nil {
		t.Fatalf("RegenerateFlags: %v", err)
	}

	if len(updated.RedFlags) != 3 || len(updated.GreenFlags) != 4 {
		t.Errorf("flag counts = %d red, %d green", len(updated.RedFlags), len(updated.GreenFlags))
	}
	// Original must not be mutated.
	if len(cfg.RedFlags) != 9 {
		t.Errorf("input configuration mutated: %d red flags", len(cfg.RedFlags))
	}
	// Threshold carried over and still reachable.
	if updated.GreenThreshold != cfg.GreenThreshold {
		t.Errorf("threshold changed: %d", updated.GreenThreshold)
	}
}

func TestRegenerateFlagsUnreachableThreshold(t *testing.T) {
	// Regenerated greens drop below the existing threshold; must be rejected.
	backend := &mockBackend{response: `{
		"red_flags": ["R1a. Closed.", "R1b. Invitation only."],
		"green_flags": ["G1. STEM mission.", "G2. Recent grants."]
	}`}

	cfg := Default(types.Organization{})
	if _, err := RegenerateFlags(context.Background(), backend, cfg, "", ""); err == nil {
		t.Fatal("RegenerateFlags accepted a configuration with an unreachable threshold")
	}
}
