// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"time"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// BaseTime is the start of every sample transcript.
var BaseTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

// At returns BaseTime plus offset formatted as RFC 3339.
func At(offset time.Duration) string {
	return BaseTime.Add(offset).Format(time.RFC3339)
}

// Entry creates a successful log entry
func Entry(ts, command, output string) types.LogEntry {
	return types.LogEntry{Timestamp: ts, Command: command, Output: output}
}

// FailedEntry creates a log entry that exited with code 1
func FailedEntry(ts, command, errText string) types.LogEntry {
	return types.LogEntry{Timestamp: ts, Command: command, Error: errText, ExitCode: 1}
}

// Record creates a pipeline step record without progress information
func Record(id int64, stepName, status, startedAt string) types.PipelineStepRecord {
	return types.PipelineStepRecord{ID: id, StepName: stepName, Status: status, StartedAt: startedAt}
}

// RecordWithProgress creates a pipeline step record reporting a progress percentage
func RecordWithProgress(id int64, stepName, status string, percent float64) types.PipelineStepRecord {
	r := Record(id, stepName, status, "")
	r.ProgressPercentage = types.Ptr(percent)
	return r
}
