// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store loads telemetry snapshots from the tables the log collector and pipeline
// status poller write to. Derivation never writes back.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/logger"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// ErrNotFound is returned when a service has no rows.
var ErrNotFound = errors.New("not found")

// GormStore wraps the GORM database connection
type GormStore struct {
	db *gorm.DB
}

// Open connects to the configured database.
func Open(cfg *config.DatabaseConfig) (*GormStore, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent), // Reduce GORM log noise
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log := logger.GetStoreLogger()
	log.Info().Str("driver", cfg.Driver).Msg("Connected to snapshot store")

	return &GormStore{db: db}, nil
}

// AutoMigrate creates or updates the snapshot tables.
func (s *GormStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&DeployLogEntry{}, &PipelineStepRecordRow{}); err != nil {
		return fmt.Errorf("failed to migrate snapshot tables: %w", err)
	}
	return nil
}

// ValidateSchema checks that the snapshot tables exist.
func (s *GormStore) ValidateSchema() error {
	var missing []string
	if !s.db.Migrator().HasTable(&DeployLogEntry{}) {
		missing = append(missing, "deploy_log_entries")
	}
	if !s.db.Migrator().HasTable(&PipelineStepRecordRow{}) {
		missing = append(missing, "pipeline_step_records")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %v", missing)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogEntries returns a service's log entries in collection order.
func (s *GormStore) LogEntries(ctx context.Context, serviceID string) ([]types.LogEntry, error) {
	var rows []DeployLogEntry
	if err := s.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("seq ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load log entries for %s: %w", serviceID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("log entries for service %s: %w", serviceID, ErrNotFound)
	}

	return lo.Map(rows, func(r DeployLogEntry, _ int) types.LogEntry { return r.ToLogEntry() }), nil
}

// StepRecords returns a service's pipeline step records in insertion order.
func (s *GormStore) StepRecords(ctx context.Context, serviceID string) ([]types.PipelineStepRecord, error) {
	var rows []PipelineStepRecordRow
	if err := s.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load step records for %s: %w", serviceID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("step records for service %s: %w", serviceID, ErrNotFound)
	}

	return lo.Map(rows, func(r PipelineStepRecordRow, _ int) types.PipelineStepRecord { return r.ToRecord() }), nil
}

// Services returns the IDs of every service with log entries or step records, sorted.
func (s *GormStore) Services(ctx context.Context) ([]string, error) {
	var fromLogs, fromRecords []string
	if err := s.db.WithContext(ctx).Model(&DeployLogEntry{}).
		Distinct("service_id").Pluck("service_id", &fromLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&PipelineStepRecordRow{}).
		Distinct("service_id").Pluck("service_id", &fromRecords).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	ids := lo.Uniq(append(fromLogs, fromRecords...))
	sort.Strings(ids)
	return ids, nil
}

// AppendLogEntries stores log entries for a service after any it already has.
// This is the collector's side of the table; derivation only reads.
func (s *GormStore) AppendLogEntries(ctx context.Context, serviceID string, logs []types.LogEntry) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int64
		if err := tx.Model(&DeployLogEntry{}).
			Where("service_id = ?", serviceID).
			Select("COALESCE(MAX(seq), 0)").
			Row().Scan(&next); err != nil {
			return fmt.Errorf("failed to read sequence for %s: %w", serviceID, err)
		}

		rows := lo.Map(logs, func(e types.LogEntry, i int) DeployLogEntry {
			return DeployLogEntry{
				ServiceID: serviceID,
				Seq:       next + int64(i) + 1,
				Timestamp: e.Timestamp,
				Command:   e.Command,
				Output:    e.Output,
				Error:     e.Error,
				ExitCode:  e.ExitCode,
			}
		})
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to store log entries for %s: %w", serviceID, err)
		}
		return nil
	})
}

// AppendStepRecords stores step records for a service. Records with a zero ID get one assigned.
func (s *GormStore) AppendStepRecords(ctx context.Context, serviceID string, records []types.PipelineStepRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := lo.Map(records, func(r types.PipelineStepRecord, _ int) PipelineStepRecordRow {
		return rowFromRecord(serviceID, r)
	})
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store step records for %s: %w", serviceID, err)
	}
	return nil
}
