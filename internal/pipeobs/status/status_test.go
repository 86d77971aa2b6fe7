// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"success", Success},
		{"SUCCEEDED", Success},
		{"Completed", Success},
		{"done", Success},
		{"sucess", Success},
		{"  finished  ", Success},
		{"running", Running},
		{"in_progress", Running},
		{"In Progress", Running},
		{"in-progress", Running},
		{"processing", Running},
		{"progress", Running},
		{"failed", Failed},
		{"Error", Failed},
		{"cancelled", Failed},
		{"canceled", Failed},
		{"pending", Pending},
		{"Queued", Pending},
		{"waiting", Pending},
		{"", Inactive},
		{"   ", Inactive},
		{"unknown", Inactive},
		{"skipped", Inactive},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_IsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	valid := map[Category]bool{Success: true, Running: true, Failed: true, Pending: true, Inactive: true}

	properties.Property("every string maps to one of the five categories", prop.ForAll(
		func(s string) bool {
			return valid[Normalize(s)]
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestProgress(t *testing.T) {
	pct := func(v float64) *float64 { return &v }

	tests := []struct {
		name         string
		record       types.PipelineStepRecord
		wantPercent  int
		wantCategory ProgressCategory
	}{
		{
			name:         "success overrides raw percent",
			record:       types.PipelineStepRecord{Status: "completed", ProgressPercentage: pct(40)},
			wantPercent:  100,
			wantCategory: ProgressSuccess,
		},
		{
			name:         "failed keeps raw percent",
			record:       types.PipelineStepRecord{Status: "failed", ProgressPercentage: pct(63)},
			wantPercent:  63,
			wantCategory: ProgressException,
		},
		{
			name:         "failed without percent",
			record:       types.PipelineStepRecord{Status: "error"},
			wantPercent:  0,
			wantCategory: ProgressException,
		},
		{
			name:         "running",
			record:       types.PipelineStepRecord{Status: "in_progress", ProgressPercentage: pct(12.6)},
			wantPercent:  13,
			wantCategory: ProgressActive,
		},
		{
			name:         "pending is normal",
			record:       types.PipelineStepRecord{Status: "queued"},
			wantPercent:  0,
			wantCategory: ProgressNormal,
		},
		{
			name:         "unknown status is normal",
			record:       types.PipelineStepRecord{Status: "mystery", ProgressPercentage: pct(20)},
			wantPercent:  20,
			wantCategory: ProgressNormal,
		},
		{
			name:         "percent is clamped",
			record:       types.PipelineStepRecord{Status: "running", ProgressPercentage: pct(250)},
			wantPercent:  100,
			wantCategory: ProgressActive,
		},
		{
			name:         "NaN percent is ignored",
			record:       types.PipelineStepRecord{Status: "running", ProgressPercentage: pct(math.NaN())},
			wantPercent:  0,
			wantCategory: ProgressActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, category := Progress(tt.record)
			assert.Equal(t, tt.wantPercent, percent)
			assert.Equal(t, tt.wantCategory, category)
		})
	}
}

func TestRawPercent_SuccessDefaultsToComplete(t *testing.T) {
	assert.Equal(t, 100, RawPercent(types.PipelineStepRecord{Status: "succeeded"}))
	assert.Equal(t, 0, RawPercent(types.PipelineStepRecord{Status: "running"}))
}
