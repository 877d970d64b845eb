// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "grant-screener/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the evidence aggregation stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the SerpAPI key. Screening cannot start without it.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// FanOut is how many hits to request per priority-source query (default 5).
	FanOut int `json:"fan_out" yaml:"fan_out"`

	// GeneralHits is how many relevant hits the general-web fallback keeps
	// (default 2).
	GeneralHits int `json:"general_hits" yaml:"general_hits"`

	// DigestMaxBytes caps the evidence digest fed to the reasoning prompt
	// (default 8192).
	DigestMaxBytes int `json:"digest_max_bytes" yaml:"digest_max_bytes"`
}

// AIConfig holds settings for the reasoning stage.
type AIConfig struct {
	// Model is the reasoning model identifier (e.g. "gemini-3-flash-preview").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the reasoning API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// BacklogConfig holds settings for the MySQL backlog source.
type BacklogConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database" yaml:"database"`

	// Table is the backlog table, e.g. "YourSchema.Grant_Opportunities".
	Table string `json:"table" yaml:"table"`

	// StageFilter selects backlog rows by stage equality (default "LOI Backlog").
	StageFilter string `json:"stage_filter" yaml:"stage_filter"`

	// Limit caps the number of rows fetched; 0 means no limit.
	Limit int `json:"limit" yaml:"limit"`
}

// SheetsConfig holds settings for the Google Sheets result sink.
type SheetsConfig struct {
	HTTPConfig `yaml:",inline"`

	// SpreadsheetID is the ID from the sheet URL. Empty disables the sink.
	SpreadsheetID string `json:"spreadsheet_id" yaml:"spreadsheet_id"`

	// CredentialsFile is the service-account JSON key path (default
	// "credentials.json").
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// Worksheet is the tab name (default "Grant Screening").
	Worksheet string `json:"worksheet" yaml:"worksheet"`
}

// LedgerConfig holds settings for the local SQLite decision ledger.
type LedgerConfig struct {
	// Path is the database file (default "screening/ledger.db").
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations for a screening run.
type PipelineConfig struct {
	// RulesFile is the rule configuration document. When the file does not
	// exist the embedded default rule set is used.
	RulesFile string `json:"rules_file" yaml:"rules_file"`

	Search    SearchConfig  `json:"search" yaml:"search"`
	Reasoning AIConfig      `json:"reasoning" yaml:"reasoning"`
	Backlog   BacklogConfig `json:"backlog" yaml:"backlog"`
	Sheets    SheetsConfig  `json:"sheets" yaml:"sheets"`
	Ledger    LedgerConfig  `json:"ledger" yaml:"ledger"`
}
