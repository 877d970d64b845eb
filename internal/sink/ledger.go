// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/grant-screener/internal/evidence"
	"github.com/pdiddy/grant-screener/pkg/types"
)

// defaultLedgerFile is used when the ledger path names a directory.
const defaultLedgerFile = "ledger.db"

// defaultLedgerPath is used when no path is configured at all.
var defaultLedgerPath = filepath.Join("screening", defaultLedgerFile)

// Ledger is the local SQLite audit trail. Every decision ever made lands
// here, tagged with the run that produced it, regardless of what happens to
// the worksheet.
type Ledger struct {
	db    *sql.DB
	runID string
}

// OpenLedger opens or creates the ledger database and assigns a fresh run ID.
func OpenLedger(cfg types.LedgerConfig) (*Ledger, error) {
	path := cfg.Path
	if path == "" {
		path = defaultLedgerPath
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, defaultLedgerFile)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, runID: uuid.NewString()}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// RunID identifies the current screening run in the ledger.
func (l *Ledger) RunID() string { return l.runID }

// Close releases the database connection.
func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			decided_at TEXT NOT NULL,
			foundation TEXT NOT NULL,
			foundation_key TEXT NOT NULL,
			record_id TEXT,
			record_name TEXT,
			classification TEXT NOT NULL,
			rationale TEXT,
			confidence REAL,
			next_application_date TEXT,
			sources TEXT,
			amount REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_key ON decisions(foundation_key)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Processed returns every normalized foundation name with at least one
// recorded decision, across all runs.
func (l *Ledger) Processed(ctx context.Context) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT foundation_key FROM decisions`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	processed := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		processed[key] = true
	}
	return processed, rows.Err()
}

// Append records one decision under the current run.
func (l *Ledger) Append(ctx context.Context, d *types.Decision) error {
	sources, err := json.Marshal(d.Sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	var nextDate sql.NullString
	if d.NextActionDate != nil {
		nextDate = sql.NullString{String: d.NextActionDate.Format("2006-01-02"), Valid: true}
	}
	var amount sql.NullFloat64
	if d.Candidate.Amount != nil {
		amount = sql.NullFloat64{Float64: *d.Candidate.Amount, Valid: true}
	}

	_, err = l.db.ExecContext(ctx, `INSERT INTO decisions
		(run_id, decided_at, foundation, foundation_key, record_id, record_name,
		 classification, rationale, confidence, next_application_date, sources, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.runID,
		time.Now().UTC().Format(time.RFC3339),
		d.Candidate.FoundationName,
		evidence.Normalize(d.Candidate.FoundationName),
		d.Candidate.ID,
		d.Candidate.Name,
		string(d.Classification),
		d.Rationale,
		d.Confidence,
		nextDate,
		string(sources),
		amount,
	)
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}
	return nil
}
