// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package types defines the value types shared by the pipeline observability core.
// This package is designed to have no dependencies to avoid import cycles.
package types

import (
	"strings"
	"time"
)

// LogEntry is one executed shell operation recorded during a deployment attempt.
// Entries are handed to the extractor in ascending time order.
type LogEntry struct {
	Timestamp string `json:"timestamp"` // ISO-8601, may be malformed
	Command   string `json:"command"`
	Output    string `json:"output"`
	Error     string `json:"error"`
	ExitCode  int    `json:"exit_code"`
}

// Failed reports whether the command exited non-zero.
func (e LogEntry) Failed() bool {
	return e.ExitCode != 0
}

// MetricsStatus is the overall deployment status derived from a log transcript.
type MetricsStatus string

const (
	MetricsStatusPending MetricsStatus = "pending"
	MetricsStatusRunning MetricsStatus = "running"
	MetricsStatusSuccess MetricsStatus = "success"
	MetricsStatusFailed  MetricsStatus = "failed"
)

// StepStatus is the status of a single recognized deployment step.
type StepStatus string

const (
	StepStatusSuccess    StepStatus = "success"
	StepStatusFailed     StepStatus = "failed"
	StepStatusSkipped    StepStatus = "skipped"
	StepStatusInProgress StepStatus = "in_progress"
)

// StepStatusFromExitCode maps a process exit code to success or failed.
func StepStatusFromExitCode(code int) StepStatus {
	if code == 0 {
		return StepStatusSuccess
	}
	return StepStatusFailed
}

// Step is one recognized deployment step.
type Step struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Message   *string    `json:"message,omitempty"`
	Timestamp *string    `json:"timestamp,omitempty"`
}

// HasMessage reports whether the step carries a non-empty message.
func (s Step) HasMessage() bool {
	return s.Message != nil && *s.Message != ""
}

// ImageRef is a container image reference split into name and tag.
type ImageRef struct {
	Name     string `json:"name"`
	Tag      string `json:"tag"`
	FullPath string `json:"fullPath"`
}

// DeployMetrics is the structured deployment state derived from a log transcript.
// It is rebuilt from scratch on every extraction.
type DeployMetrics struct {
	Status     MetricsStatus `json:"status"`
	DeployTime *string       `json:"deployTime,omitempty"`
	Duration   *int64        `json:"duration,omitempty"` // seconds
	Namespace  *string       `json:"namespace,omitempty"`
	Images     []ImageRef    `json:"images"`

	// Legacy single-image fields, mirroring Images[0].
	ImageName *string `json:"imageName,omitempty"`
	ImageTag  *string `json:"imageTag,omitempty"`

	Steps    []Step   `json:"steps"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewDeployMetrics returns an empty pending metrics value with non-nil slices.
func NewDeployMetrics() DeployMetrics {
	return DeployMetrics{
		Status:   MetricsStatusPending,
		Images:   []ImageRef{},
		Steps:    []Step{},
		Errors:   []string{},
		Warnings: []string{},
	}
}

// PipelineStepRecord is a polled status record for one pipeline stage at one point in time.
// Many records may exist per stage across repeated runs.
type PipelineStepRecord struct {
	ID                 int64          `json:"id"`
	StepName           string         `json:"step_name"`
	Status             string         `json:"status"`
	ProgressPercentage *float64       `json:"progress_percentage,omitempty"`
	StartedAt          string         `json:"started_at,omitempty"`
	CompletedAt        string         `json:"completed_at,omitempty"`
	DurationSeconds    *float64       `json:"duration_seconds,omitempty"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	DetailsData        map[string]any `json:"details_data,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r PipelineStepRecord) Clone() PipelineStepRecord {
	out := r
	if r.ProgressPercentage != nil {
		v := *r.ProgressPercentage
		out.ProgressPercentage = &v
	}
	if r.DurationSeconds != nil {
		v := *r.DurationSeconds
		out.DurationSeconds = &v
	}
	if r.DetailsData != nil {
		out.DetailsData = make(map[string]any, len(r.DetailsData))
		for k, v := range r.DetailsData {
			out.DetailsData[k] = v
		}
	}
	return out
}

// Stage is a canonical pipeline phase.
type Stage string

const (
	StageSource  Stage = "source"
	StageBuild   Stage = "build"
	StageDeploy  Stage = "deploy"
	StageOperate Stage = "operate"
)

// CanonicalStages lists the stages in pipeline order.
var CanonicalStages = []Stage{StageSource, StageBuild, StageDeploy, StageOperate}

// ParseStage returns the canonical stage named by s.
func ParseStage(s string) (Stage, bool) {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case StageSource:
		return StageSource, true
	case StageBuild:
		return StageBuild, true
	case StageDeploy:
		return StageDeploy, true
	case StageOperate:
		return StageOperate, true
	}
	return "", false
}

// StatusCategory is the canonical category of a backend status string.
type StatusCategory string

const (
	CategorySuccess  StatusCategory = "success"
	CategoryRunning  StatusCategory = "running"
	CategoryFailed   StatusCategory = "failed"
	CategoryPending  StatusCategory = "pending"
	CategoryInactive StatusCategory = "inactive"
)

// ProgressCategory drives how a stage's progress is displayed.
type ProgressCategory string

const (
	ProgressNormal    ProgressCategory = "normal"
	ProgressActive    ProgressCategory = "active"
	ProgressSuccess   ProgressCategory = "success"
	ProgressException ProgressCategory = "exception"
)

// ResolvedStage is the authoritative record chosen for a canonical stage.
type ResolvedStage struct {
	Stage    Stage              `json:"stage"`
	Record   PipelineStepRecord `json:"record"`
	Status   StatusCategory     `json:"status"`
	Percent  int                `json:"percent"` // 0..100
	Progress ProgressCategory   `json:"progress"`

	// Synthesized marks records derived by a rule rather than read from input.
	Synthesized bool `json:"synthesized,omitempty"`
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp. Timestamps without a zone are taken as UTC.
// ok is false for empty or malformed input.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
