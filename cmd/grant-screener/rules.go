// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/internal/rules"
	"github.com/pdiddy/grant-screener/pkg/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and update the rule configuration",
	Long: `Rules manages the red/green flag configuration used for screening.
Use "show" to inspect it, "set-size", "set-threshold", and "set-org" for
direct edits, and "regen-flags" to have the reasoning model rewrite the
flag lists from fresh input.`,
}

func rulesFilePath(cmd *cobra.Command) string {
	if f, _ := cmd.Flags().GetString("rules"); f != "" {
		return f
	}
	return pipelineConfig().RulesFile
}

// --- show ---

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active rule configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := rules.LoadOrDefault(rulesFilePath(cmd), types.Organization{})
		if err != nil {
			return err
		}

		fmt.Printf("Organization: %s (%s)\n", cfg.Org.Name, cfg.Org.Region)
		fmt.Printf("Mission: %s\n", cfg.Org.Mission)
		if cfg.GrantSize.Bounded() {
			fmt.Printf("Grant size: $%.0f - $%.0f\n", cfg.GrantSize.Min, cfg.GrantSize.Max)
		}
		fmt.Println("\nRed flags:")
		for _, r := range cfg.RedFlags {
			fmt.Printf("  %s. %s\n", r.Label, r.Text)
		}
		fmt.Println("\nGreen flags:")
		for _, r := range cfg.GreenFlags {
			fmt.Printf("  %s. %s\n", r.Label, r.Text)
		}
		fmt.Printf("\nGreen threshold: %d of %d\n", cfg.GreenThreshold, len(cfg.GreenFlags))
		if cfg.CustomContext != "" {
			fmt.Printf("Context: %s\n", cfg.CustomContext)
		}
		return nil
	},
}

// --- set-size ---

var rulesSetSizeCmd = &cobra.Command{
	Use:   "set-size <min> <max>",
	Short: "Set the useful grant size range in dollars",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		min, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid minimum %q", args[0])
		}
		max, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid maximum %q", args[1])
		}
		if min < 0 || max < min {
			return fmt.Errorf("grant size range must satisfy 0 <= min <= max")
		}

		return updateRules(cmd, func(cfg *types.RuleConfiguration) error {
			cfg.GrantSize = types.GrantSize{Min: min, Max: max}
			return nil
		})
	},
}

// --- set-threshold ---

var rulesSetThresholdCmd = &cobra.Command{
	Use:   "set-threshold <n>",
	Short: "Set how many green flags a GREEN classification requires",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid threshold %q", args[0])
		}
		return updateRules(cmd, func(cfg *types.RuleConfiguration) error {
			cfg.GreenThreshold = n
			return nil
		})
	},
}

// --- set-org ---

var rulesSetOrgCmd = &cobra.Command{
	Use:   "set-org",
	Short: "Update the organization profile used in prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateRules(cmd, func(cfg *types.RuleConfiguration) error {
			if v, _ := cmd.Flags().GetString("name"); v != "" {
				cfg.Org.Name = v
			}
			if v, _ := cmd.Flags().GetString("mission"); v != "" {
				cfg.Org.Mission = v
			}
			if v, _ := cmd.Flags().GetString("region"); v != "" {
				cfg.Org.Region = v
			}
			if v, _ := cmd.Flags().GetString("localities"); v != "" {
				cfg.Org.TargetLocalities = v
			}
			return nil
		})
	},
}

// --- regen-flags ---

var rulesRegenCmd = &cobra.Command{
	Use:   "regen-flags",
	Short: "Regenerate the red/green flag lists from fresh input",
	Long: `Regen-flags feeds your current rules plus new disqualifiers and positive
signals to the reasoning model and replaces the flag lists with its output.
The protected R1a and R1b rules are always kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		redInput, _ := cmd.Flags().GetString("red")
		greenInput, _ := cmd.Flags().GetString("green")
		if redInput == "" && greenInput == "" {
			return fmt.Errorf("provide --red and/or --green input to regenerate from")
		}

		backend, err := reason.NewGemini(cmd.Context(), pipelineConfig().Reasoning)
		if err != nil {
			return err
		}

		path := rulesFilePath(cmd)
		cfg, err := rules.LoadOrDefault(path, types.Organization{})
		if err != nil {
			return err
		}

		updated, err := rules.RegenerateFlags(cmd.Context(), backend, cfg, redInput, greenInput)
		if err != nil {
			return err
		}
		if err := rules.Save(path, updated); err != nil {
			return err
		}
		fmt.Printf("Updated %s: %d red flags, %d green flags\n",
			path, len(updated.RedFlags), len(updated.GreenFlags))
		return nil
	},
}

// updateRules loads, edits, validates, and writes back the configuration.
func updateRules(cmd *cobra.Command, edit func(*types.RuleConfiguration) error) error {
	path := rulesFilePath(cmd)
	cfg, err := rules.LoadOrDefault(path, types.Organization{})
	if err != nil {
		return err
	}
	if err := edit(cfg); err != nil {
		return err
	}
	if err := rules.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", path)
	return nil
}

func init() {
	rulesCmd.PersistentFlags().String("rules", "", "rule configuration file (default: "+rules.DefaultFile+")")

	rulesSetOrgCmd.Flags().String("name", "", "organization name")
	rulesSetOrgCmd.Flags().String("mission", "", "mission statement")
	rulesSetOrgCmd.Flags().String("region", "", "home state or region")
	rulesSetOrgCmd.Flags().String("localities", "", "target cities or localities")

	rulesRegenCmd.Flags().String("red", "", "new disqualifiers, comma-separated")
	rulesRegenCmd.Flags().String("green", "", "new positive signals, comma-separated")

	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesSetSizeCmd)
	rulesCmd.AddCommand(rulesSetThresholdCmd)
	rulesCmd.AddCommand(rulesSetOrgCmd)
	rulesCmd.AddCommand(rulesRegenCmd)

	rootCmd.AddCommand(rulesCmd)
}
