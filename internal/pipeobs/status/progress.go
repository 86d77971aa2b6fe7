// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"math"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

const (
	ProgressNormal    = types.ProgressNormal
	ProgressActive    = types.ProgressActive
	ProgressSuccess   = types.ProgressSuccess
	ProgressException = types.ProgressException
)

// RawPercent returns the record's own progress: a finite progress_percentage clamped to
// 0..100, else 100 for a successful record, else 0.
func RawPercent(record types.PipelineStepRecord) int {
	if p := record.ProgressPercentage; p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) {
		return int(math.Round(math.Max(0, math.Min(100, *p))))
	}
	if Normalize(record.Status) == Success {
		return 100
	}
	return 0
}

// Progress derives the display percent and progress category for a record.
// A successful record is always reported complete, whatever its raw percent says.
func Progress(record types.PipelineStepRecord) (int, ProgressCategory) {
	switch Normalize(record.Status) {
	case Success:
		return 100, ProgressSuccess
	case Failed:
		return RawPercent(record), ProgressException
	case Running:
		return RawPercent(record), ProgressActive
	default:
		return RawPercent(record), ProgressNormal
	}
}
