// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backlog reads candidate grant opportunities from the CRM-synced
// MySQL table. The table mirrors the CRM opportunity export, so column names
// keep their upstream shape.
package backlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// DefaultStage is the opportunity stage screened when none is configured.
const DefaultStage = "LOI Backlog"

// row mirrors one CRM opportunity record.
type row struct {
	ID        string   `gorm:"column:Id"`
	Name      string   `gorm:"column:Name"`
	KanbanTag string   `gorm:"column:Corporate_Kanban_Sort__c"`
	Amount    *float64 `gorm:"column:Amount"`
	Website   string   `gorm:"column:Grant_Requirements_Website__c"`
	Focus     string   `gorm:"column:Grant_Focus__c"`
	Stage     string   `gorm:"column:StageName"`
}

// Store is the read-only view of the opportunity backlog.
type Store struct {
	db    *gorm.DB
	table string
	cfg   types.BacklogConfig
}

// Open connects to the backlog database. The gorm logger is tuned down to
// warnings so per-row SQL does not drown the run output.
func Open(cfg types.BacklogConfig) (*Store, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("backlog database not configured")
	}
	if cfg.Table == "" {
		cfg.Table = "opportunities"
	}
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	if cfg.StageFilter == "" {
		cfg.StageFilter = DefaultStage
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to backlog database: %w", err)
	}
	return &Store{db: db, table: cfg.Table, cfg: cfg}, nil
}

// Ping verifies the connection end to end.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("backlog connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("backlog ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Count returns how many backlog rows match the configured stage.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(s.table).
		Where("StageName = ?", s.cfg.StageFilter).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting backlog rows: %w", err)
	}
	return n, nil
}

// Fetch loads candidates in the configured stage, ordered by name for stable
// runs. limit <= 0 falls back to the configured limit; both unset means the
// whole stage.
func (s *Store) Fetch(ctx context.Context, limit int) ([]types.Candidate, error) {
	if limit <= 0 {
		limit = s.cfg.Limit
	}

	q := s.db.WithContext(ctx).Table(s.table).
		Where("StageName = ?", s.cfg.StageFilter).
		Order("Name")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching backlog rows: %w", err)
	}

	candidates := make([]types.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, toCandidate(r))
	}
	return candidates, nil
}

// toCandidate maps a CRM row onto a screening candidate. The kanban sort tag,
// when present, carries the funder's proper name prefixed with a "~" sort
// marker, stripped here so downstream prompts and records see the plain name;
// the record name is a fiscal-year label like "FY26 Acme Family Foundation
// Grant".
func toCandidate(r row) types.Candidate {
	foundation := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(r.KanbanTag), "~"))
	if foundation == "" {
		foundation = foundationFromRecordName(r.Name)
	}
	return types.Candidate{
		ID:             r.ID,
		Name:           r.Name,
		FoundationName: foundation,
		Amount:         r.Amount,
		Website:        strings.TrimSpace(r.Website),
		FocusArea:      strings.TrimSpace(r.Focus),
		Stage:          r.Stage,
	}
}

// foundationFromRecordName strips the fiscal-year prefix and "Grant" suffix
// from a record name when no kanban tag is available.
func foundationFromRecordName(name string) string {
	s := strings.TrimSpace(name)
	if len(s) >= 4 && strings.HasPrefix(s, "FY") {
		rest := s[2:]
		if len(rest) >= 2 && isDigit(rest[0]) && isDigit(rest[1]) {
			s = strings.TrimSpace(rest[2:])
		}
	}
	s = strings.TrimSuffix(s, " Grant")
	return strings.TrimSpace(s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
