// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/internal/rules"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Build the rule configuration interactively",
	Long: `Wizard walks through a short questionnaire about your nonprofit and its
screening criteria, then asks the reasoning model to turn the answers into a
structured red/green flag configuration. The result is previewed and written
to the rules file.`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.RulesFile
	}

	backend, err := reason.NewGemini(cmd.Context(), cfg.Reasoning)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Answer a few questions about your organization. Press Enter to skip any.")
	answers := rules.Answers{
		OrgName:       ask(in, out, "Organization name"),
		OrgMission:    ask(in, out, "Mission (one sentence)"),
		OrgRegion:     ask(in, out, "Home state or region"),
		OrgLocalities: ask(in, out, "Target cities or localities"),
		GrantFocus:    ask(in, out, "What kind of grants are you looking for?"),
		GrantMin:      ask(in, out, "Minimum useful grant size (USD)"),
		GrantMax:      ask(in, out, "Maximum realistic grant size (USD)"),
		TargetGroup:   ask(in, out, "Who do your programs serve?"),
		EquityFocus:   ask(in, out, "Any equity or community focus funders should match?"),
		RedFlagsRaw:   ask(in, out, "Deal-breakers when considering a funder (comma-separated)"),
		GreenFlagsRaw: ask(in, out, "Signals that a funder is a great fit (comma-separated)"),
	}

	fmt.Fprintln(out, "\nBuilding rule configuration...")
	ruleCfg, err := rules.BuildFromAnswers(cmd.Context(), backend, answers)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfiguration for %s:\n", ruleCfg.Org.Name)
	fmt.Fprintln(out, "\nRed flags:")
	for _, r := range ruleCfg.RedFlags {
		fmt.Fprintf(out, "  %s. %s\n", r.Label, r.Text)
	}
	fmt.Fprintln(out, "\nGreen flags:")
	for _, r := range ruleCfg.GreenFlags {
		fmt.Fprintf(out, "  %s. %s\n", r.Label, r.Text)
	}
	fmt.Fprintf(out, "\nGreen threshold: %d of %d\n", ruleCfg.GreenThreshold, len(ruleCfg.GreenFlags))
	if ruleCfg.GrantSize.Bounded() {
		fmt.Fprintf(out, "Grant size: $%.0f - $%.0f\n", ruleCfg.GrantSize.Min, ruleCfg.GrantSize.Max)
	}

	if !confirm(in, out, fmt.Sprintf("\nWrite configuration to %s?", output)) {
		fmt.Fprintln(out, "Aborted, nothing written.")
		return nil
	}
	if err := rules.Save(output, ruleCfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", output)
	return nil
}

func ask(in *bufio.Reader, out io.Writer, question string) string {
	fmt.Fprintf(out, "%s: ", question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	wizardCmd.Flags().String("output", "", "where to write the configuration (default: rules file from config)")

	rootCmd.AddCommand(wizardCmd)
}
