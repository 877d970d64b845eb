// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grant-screener/internal/backlog"
)

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Inspect the opportunity backlog",
}

var backlogCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count backlog rows in the screening stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := pipelineConfig().Backlog
		store, err := backlog.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		stage := cfg.StageFilter
		if stage == "" {
			stage = backlog.DefaultStage
		}
		fmt.Printf("%d opportunity(ies) in stage %q\n", n, stage)
		return nil
	},
}

var backlogPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Verify the backlog database connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := backlog.Open(pipelineConfig().Backlog)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Ping(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Backlog database reachable.")
		return nil
	},
}

func init() {
	backlogCmd.AddCommand(backlogCountCmd)
	backlogCmd.AddCommand(backlogPingCmd)

	rootCmd.AddCommand(backlogCmd)
}
