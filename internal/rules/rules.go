// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rules loads, validates, and writes the screening rule configuration.
// The configuration is a YAML document produced by the setup wizard; when no
// document exists the embedded baseline rule set is used so the engine always
// starts from an identically shaped RuleConfiguration.
package rules

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// DefaultFile is the rule document the CLI reads unless told otherwise.
const DefaultFile = "screener-config.yaml"

// Load reads and validates a rule configuration document.
func Load(path string) (*types.RuleConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule configuration: %w", err)
	}

	var cfg types.RuleConfiguration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rule configuration %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid rule configuration %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns the embedded
// default configuration for org. Both paths yield a validated configuration.
func LoadOrDefault(path string, org types.Organization) (*types.RuleConfiguration, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg := Default(org)
			if err := Validate(cfg); err != nil {
				return nil, fmt.Errorf("default rule configuration: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("checking rule configuration: %w", err)
	}
	return Load(path)
}

// Save writes the configuration as YAML.
func Save(path string, cfg *types.RuleConfiguration) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling rule configuration: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the structural invariants the decision engine depends on:
// the two reserved red-flag labels exist, labels are unique per color, and
// the green threshold is reachable. A threshold above the green-flag count
// would make GREEN unreachable, so it is rejected here rather than silently
// producing an engine that can never accept.
func Validate(cfg *types.RuleConfiguration) error {
	if len(cfg.RedFlags) == 0 {
		return fmt.Errorf("no red flags defined")
	}
	if len(cfg.GreenFlags) == 0 {
		return fmt.Errorf("no green flags defined")
	}

	seen := make(map[string]bool)
	for i, r := range cfg.RedFlags {
		if r.Label == "" || r.Text == "" {
			return fmt.Errorf("red flag %d: empty label or text", i)
		}
		if seen[r.Label] {
			return fmt.Errorf("duplicate red flag label %q", r.Label)
		}
		seen[r.Label] = true
	}
	if !seen[types.HardCloseLabel] {
		return fmt.Errorf("reserved red flag %s (permanently closed) is missing", types.HardCloseLabel)
	}
	if !seen[types.InviteOnlyLabel] {
		return fmt.Errorf("reserved red flag %s (invitation only) is missing", types.InviteOnlyLabel)
	}

	greens := make(map[string]bool)
	for i, g := range cfg.GreenFlags {
		if g.Label == "" || g.Text == "" {
			return fmt.Errorf("green flag %d: empty label or text", i)
		}
		if greens[g.Label] {
			return fmt.Errorf("duplicate green flag label %q", g.Label)
		}
		greens[g.Label] = true
	}

	if cfg.GreenThreshold < 1 {
		return fmt.Errorf("green threshold must be at least 1, got %d", cfg.GreenThreshold)
	}
	if cfg.GreenThreshold > len(cfg.GreenFlags) {
		return fmt.Errorf("green threshold %d exceeds the %d defined green flags; GREEN would be unreachable",
			cfg.GreenThreshold, len(cfg.GreenFlags))
	}
	return nil
}

// ParseRule splits a wizard-style rule string ("R2. Only funds colleges")
// into its label and text.
func ParseRule(s string) (types.Rule, error) {
	trimmed := strings.TrimSpace(s)
	label, rest, found := strings.Cut(trimmed, ".")
	if !found || strings.TrimSpace(rest) == "" {
		return types.Rule{}, fmt.Errorf("rule %q is not in \"LABEL. text\" form", s)
	}
	return types.Rule{
		Label: strings.TrimSpace(label),
		Text:  strings.TrimSpace(rest),
	}, nil
}

// ParseRules converts a list of wizard-style rule strings.
func ParseRules(ss []string) ([]types.Rule, error) {
	out := make([]types.Rule, 0, len(ss))
	for _, s := range ss {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
