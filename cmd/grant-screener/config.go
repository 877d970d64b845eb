// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/grant-screener/internal/reason"
	"github.com/pdiddy/grant-screener/internal/rules"
	"github.com/pdiddy/grant-screener/internal/secrets"
	"github.com/pdiddy/grant-screener/pkg/types"
)

func init() {
	viper.SetDefault("rules_file", rules.DefaultFile)

	viper.SetDefault("search.fan_out", 5)
	viper.SetDefault("search.general_hits", 2)
	viper.SetDefault("search.digest_max_bytes", 8192)
	viper.SetDefault("search.user_agent", "grant-screener/"+version)

	viper.SetDefault("reasoning.model", "gemini-3-flash-preview")
	viper.SetDefault("reasoning.max_retries", reason.DefaultMaxRetries)

	viper.SetDefault("backlog.host", "127.0.0.1")
	viper.SetDefault("backlog.port", 3306)

	viper.SetDefault("sheets.credentials_file", "credentials.json")
}

// pipelineConfig assembles the full pipeline configuration from viper and
// the loaded secrets. Explicit config values win over secrets.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		RulesFile: viper.GetString("rules_file"),
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: viper.GetString("search.user_agent"),
			},
			APIKey:         secretDefault(secrets.KeySerpAPI, viper.GetString("search.api_key")),
			FanOut:         viper.GetInt("search.fan_out"),
			GeneralHits:    viper.GetInt("search.general_hits"),
			DigestMaxBytes: viper.GetInt("search.digest_max_bytes"),
		},
		Reasoning: types.AIConfig{
			Model:      viper.GetString("reasoning.model"),
			APIKey:     secretDefault(secrets.KeyGemini, viper.GetString("reasoning.api_key")),
			MaxRetries: viper.GetInt("reasoning.max_retries"),
		},
		Backlog: types.BacklogConfig{
			Host:        viper.GetString("backlog.host"),
			Port:        viper.GetInt("backlog.port"),
			User:        viper.GetString("backlog.user"),
			Password:    secretDefault(secrets.KeyMySQLPassword, viper.GetString("backlog.password")),
			Database:    viper.GetString("backlog.database"),
			Table:       viper.GetString("backlog.table"),
			StageFilter: viper.GetString("backlog.stage_filter"),
			Limit:       viper.GetInt("backlog.limit"),
		},
		Sheets: types.SheetsConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout: viper.GetDuration("sheets.timeout"),
			},
			SpreadsheetID:   viper.GetString("sheets.spreadsheet_id"),
			CredentialsFile: viper.GetString("sheets.credentials_file"),
			Worksheet:       viper.GetString("sheets.worksheet"),
		},
		Ledger: types.LedgerConfig{
			Path: viper.GetString("ledger.path"),
		},
	}
}
