// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// DeployLogEntry is one recorded shell command of a deployment, as written by the log collector.
type DeployLogEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ServiceID string    `gorm:"type:text;not null;index:idx_deploy_log_entries_service_seq,priority:1"`
	Seq       int64     `gorm:"not null;index:idx_deploy_log_entries_service_seq,priority:2"`
	Timestamp string    `gorm:"type:text"` // raw collector value, may be unparseable
	Command   string    `gorm:"type:text"`
	Output    string    `gorm:"type:text"`
	Error     string    `gorm:"type:text"`
	ExitCode  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ToLogEntry converts the row to the core log entry type.
func (e DeployLogEntry) ToLogEntry() types.LogEntry {
	return types.LogEntry{
		Timestamp: e.Timestamp,
		Command:   e.Command,
		Output:    e.Output,
		Error:     e.Error,
		ExitCode:  e.ExitCode,
	}
}

// PipelineStepRecordRow is one polled stage status, as written by the pipeline status poller.
type PipelineStepRecordRow struct {
	ID                 int64       `gorm:"primaryKey;autoIncrement"`
	ServiceID          string      `gorm:"type:text;not null;index"`
	StepName           string      `gorm:"type:text;not null"`
	Status             string      `gorm:"type:text"`
	ProgressPercentage *float64
	StartedAt          string `gorm:"type:text"`
	CompletedAt        string `gorm:"type:text"`
	DurationSeconds    *float64
	ErrorMessage       string      `gorm:"type:text"`
	DetailsData        DetailsData `gorm:"type:text"`
	CreatedAt          time.Time   `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable regardless of the Go type name.
func (PipelineStepRecordRow) TableName() string {
	return "pipeline_step_records"
}

// ToRecord converts the row to the core record type.
func (r PipelineStepRecordRow) ToRecord() types.PipelineStepRecord {
	rec := types.PipelineStepRecord{
		ID:                 r.ID,
		StepName:           r.StepName,
		Status:             r.Status,
		ProgressPercentage: r.ProgressPercentage,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
		DurationSeconds:    r.DurationSeconds,
		ErrorMessage:       r.ErrorMessage,
	}
	if len(r.DetailsData) > 0 {
		rec.DetailsData = map[string]any(r.DetailsData)
	}
	return rec
}

func rowFromRecord(serviceID string, rec types.PipelineStepRecord) PipelineStepRecordRow {
	return PipelineStepRecordRow{
		ID:                 rec.ID,
		ServiceID:          serviceID,
		StepName:           rec.StepName,
		Status:             rec.Status,
		ProgressPercentage: rec.ProgressPercentage,
		StartedAt:          rec.StartedAt,
		CompletedAt:        rec.CompletedAt,
		DurationSeconds:    rec.DurationSeconds,
		ErrorMessage:       rec.ErrorMessage,
		DetailsData:        DetailsData(rec.DetailsData),
	}
}

// DetailsData is free-form record detail stored as a JSON object.
type DetailsData map[string]any

func (d *DetailsData) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("cannot scan DetailsData from non-string/[]byte value")
	}
	if len(raw) == 0 || string(raw) == "null" {
		*d = nil
		return nil
	}
	return json.Unmarshal(raw, d)
}

func (d DetailsData) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
