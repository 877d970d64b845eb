// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-screener/internal/backlog"
	"github.com/pdiddy/grant-screener/internal/evidence"
	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/internal/rules"
	"github.com/pdiddy/grant-screener/internal/screen"
	"github.com/pdiddy/grant-screener/internal/sink"
	"github.com/pdiddy/grant-screener/pkg/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen backlog opportunities and record decisions",
	Long: `Screen fetches candidate funders from the opportunity backlog, gathers
evidence for each, evaluates them against the configured red and green flag
rules, and appends one color-coded decision row per funder to the team
worksheet plus the local audit ledger.

Foundations already present in the worksheet or ledger are skipped, so the
command can be re-run as the backlog grows.`,
	RunE: runScreen,
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if rulesFile, _ := cmd.Flags().GetString("rules"); rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ruleCfg, err := rules.LoadOrDefault(cfg.RulesFile, types.Organization{})
	if err != nil {
		return err
	}

	provider, err := evidence.NewSerpAPI(cfg.Search)
	if err != nil {
		return err
	}
	backend, err := reason.NewGemini(cmd.Context(), cfg.Reasoning)
	if err != nil {
		return err
	}

	store, err := backlog.Open(cfg.Backlog)
	if err != nil {
		return err
	}
	defer store.Close()

	candidates, err := store.Fetch(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Backlog is empty, nothing to screen.")
		return nil
	}
	fmt.Printf("Screening %d candidate(s) from stage %q\n", len(candidates), cfg.Backlog.StageFilter)

	var recorder screen.Sink
	if dryRun {
		fmt.Println("Dry run: decisions will not be recorded.")
	} else {
		recorder, err = buildSinks(cmd.Context(), cfg)
		if err != nil {
			return err
		}
	}

	screener := &screen.Screener{
		Rules:      ruleCfg,
		Evidence:   evidence.NewAggregator(provider, cfg.Search, log),
		Backend:    backend,
		MaxRetries: cfg.Reasoning.MaxRetries,
		Log:        log,
	}

	summary, decisions, err := screener.Run(cmd.Context(), candidates, recorder, os.Stdout)
	if err != nil {
		return err
	}

	screen.FormatReport(decisions, os.Stdout)
	if summary.WriteFailures > 0 {
		return fmt.Errorf("%d decision(s) could not be recorded", summary.WriteFailures)
	}
	return nil
}

// buildSinks opens the ledger and, when a spreadsheet is configured, the
// worksheet sink.
func buildSinks(ctx context.Context, cfg types.PipelineConfig) (screen.Sink, error) {
	ledger, err := sink.OpenLedger(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	if cfg.Sheets.SpreadsheetID == "" {
		fmt.Fprintln(os.Stderr, "No spreadsheet configured; recording to the local ledger only.")
		return ledger, nil
	}

	sheets, err := sink.NewSheets(cfg.Sheets)
	if err != nil {
		return nil, err
	}
	return sink.NewMulti(sheets, ledger), nil
}

func init() {
	screenCmd.Flags().Int("limit", 0, "screen at most N candidates (0 = all)")
	screenCmd.Flags().Bool("dry-run", false, "evaluate candidates without recording decisions")
	screenCmd.Flags().String("rules", "", "rule configuration file (default: "+rules.DefaultFile+")")

	rootCmd.AddCommand(screenCmd)
}
