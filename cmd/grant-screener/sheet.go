// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-screener/internal/sink"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Manage the decision worksheet",
}

var sheetClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all decision rows from the worksheet",
	Long: `Clear wipes every decision row from the worksheet, keeping the header.
The local ledger is untouched, so cleared foundations will be skipped on the
next run unless the ledger is removed as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("sheet clear is destructive: re-run with --yes to confirm")
		}

		sheets, err := sink.NewSheets(pipelineConfig().Sheets)
		if err != nil {
			return err
		}
		if err := sheets.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Worksheet cleared.")
		return nil
	},
}

func init() {
	sheetClearCmd.Flags().Bool("yes", false, "confirm clearing the worksheet")

	sheetCmd.AddCommand(sheetClearCmd)
	rootCmd.AddCommand(sheetCmd)
}
