// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// DefaultGreenThreshold is the baseline green-flag count required for GREEN.
const DefaultGreenThreshold = 4

// Default returns the embedded baseline rule set, parameterized by the
// organization profile. Empty profile fields fall back to the stock STEM
// nonprofit the baseline was written for, so a fresh install can screen
// before the wizard has ever run.
func Default(org types.Organization) *types.RuleConfiguration {
	if org.Name == "" {
		org.Name = "Our Nonprofit"
	}
	if org.Mission == "" {
		org.Mission = "providing STEM education to underserved youth"
	}
	if org.Region == "" {
		org.Region = "NJ"
	}
	if org.TargetLocalities == "" {
		org.TargetLocalities = "local cities"
	}

	return &types.RuleConfiguration{
		Org:            org,
		GrantSize:      types.GrantSize{},
		GreenThreshold: DefaultGreenThreshold,
		RedFlags: []types.Rule{
			{Label: types.HardCloseLabel, Text: `Status explicitly says "not accepting applications" or "permanently closed" → Hard RED.`},
			{Label: types.InviteOnlyLabel, Text: `Status says "invitation only" → Soft flag.`},
			{Label: "R2", Text: fmt.Sprintf("Only funds a state that is not %s", org.Region)},
			{Label: "R3", Text: fmt.Sprintf("Zero %s grantees found", org.Region)},
			{Label: "R4", Text: "Only funds colleges/hospitals/adults — no K-12 or youth"},
			{Label: "R5", Text: "Mission contradicts actual grant focus"},
			{Label: "R6", Text: "Only Environment, Animals, or Health — no education"},
			{Label: "R7", Text: "Max grant < $2,500 or min grant > $100,000"},
			{Label: "R8", Text: "Last grant awarded more than 2 years ago"},
		},
		GreenFlags: []types.Rule{
			{Label: "G1", Text: "Mission mentions STEM, coding, robotics, or girls in STEM"},
			{Label: "G2", Text: "Past grantees include STEM programs or coding orgs"},
			{Label: "G3", Text: fmt.Sprintf("Based in or funds %s", org.Region)},
			{Label: "G4", Text: fmt.Sprintf("Past grants in %s", org.TargetLocalities)},
			{Label: "G5", Text: "Age group: middle school, grades 6-8, youth, or K-12"},
			{Label: "G6", Text: "Equity: underserved, low-income, or Title I"},
			{Label: "G7", Text: "Typical grant $5,000–$50,000"},
			{Label: "G8", Text: "Grants awarded in the last 12 months"},
		},
	}
}
