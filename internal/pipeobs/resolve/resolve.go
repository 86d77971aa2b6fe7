// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolve picks one authoritative record per canonical pipeline stage out of the
// overlapping, possibly stale records a status poller accumulates across runs.
//
// Resolution is deterministic and total: malformed timestamps rank lowest instead of failing,
// and inputs are never mutated.
package resolve

import (
	"github.com/samber/lo"

	"github.com/noldarim/opsdash/internal/pipeobs/status"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// Resolve returns the authoritative record for stage.
//
// The source stage is always reported as a synthesized success. An operate stage without
// records of its own is synthesized from a successful deploy. Otherwise ok is false when no
// record normalizes to stage.
func Resolve(records []types.PipelineStepRecord, stage types.Stage) (types.ResolvedStage, bool) {
	switch stage {
	case types.StageSource:
		return sourceStage(), true
	case types.StageBuild, types.StageDeploy, types.StageOperate:
	default:
		return types.ResolvedStage{}, false
	}

	if best, ok := pick(candidates(records, stage)); ok {
		return newResolved(stage, best.Clone(), false), true
	}

	if stage != types.StageOperate {
		return types.ResolvedStage{}, false
	}
	deploy, ok := Resolve(records, types.StageDeploy)
	if !ok || deploy.Status != status.Success {
		return types.ResolvedStage{}, false
	}
	synthetic := deploy.Record.Clone()
	synthetic.Status = string(status.Success)
	return newResolved(types.StageOperate, synthetic, true), true
}

// ResolveStages resolves the requested stages in the order given, skipping stages without
// evidence and repeated requests.
func ResolveStages(records []types.PipelineStepRecord, stages ...types.Stage) []types.ResolvedStage {
	out := make([]types.ResolvedStage, 0, len(stages))
	for _, stage := range lo.Uniq(stages) {
		if resolved, ok := Resolve(records, stage); ok {
			out = append(out, resolved)
		}
	}
	return out
}

// ResolveAll resolves every canonical stage, in pipeline order.
func ResolveAll(records []types.PipelineStepRecord) []types.ResolvedStage {
	return ResolveStages(records, types.CanonicalStages...)
}

// Overall folds resolved stages into one pipeline category: failed, then running, then
// success when every stage succeeded, then pending. No stages is inactive.
func Overall(stages []types.ResolvedStage) status.Category {
	if len(stages) == 0 {
		return status.Inactive
	}
	has := func(c status.Category) bool {
		return lo.ContainsBy(stages, func(s types.ResolvedStage) bool { return s.Status == c })
	}
	switch {
	case has(status.Failed):
		return status.Failed
	case has(status.Running):
		return status.Running
	case lo.EveryBy(stages, func(s types.ResolvedStage) bool { return s.Status == status.Success }):
		return status.Success
	case has(status.Pending):
		return status.Pending
	}
	return status.Inactive
}

func candidates(records []types.PipelineStepRecord, stage types.Stage) []types.PipelineStepRecord {
	return lo.Filter(records, func(r types.PipelineStepRecord, _ int) bool {
		s, ok := NormalizeStageName(r.StepName)
		return ok && s == stage
	})
}

// pick returns the highest-ranked candidate. Exact ties keep the earliest in input order.
func pick(candidates []types.PipelineStepRecord) (types.PipelineStepRecord, bool) {
	if len(candidates) == 0 {
		return types.PipelineStepRecord{}, false
	}
	return lo.MaxBy(candidates, Outranks), true
}

// Outranks reports whether a strictly beats b: a running record beats a non-running one, then
// the later started_at, then the later completed_at, then the larger id. Missing or
// unparseable timestamps rank below every valid one.
func Outranks(a, b types.PipelineStepRecord) bool {
	aRunning := status.Normalize(a.Status) == status.Running
	bRunning := status.Normalize(b.Status) == status.Running
	if aRunning != bRunning {
		return aRunning
	}
	if c := compareTimestamps(a.StartedAt, b.StartedAt); c != 0 {
		return c > 0
	}
	if c := compareTimestamps(a.CompletedAt, b.CompletedAt); c != 0 {
		return c > 0
	}
	return a.ID > b.ID
}

func compareTimestamps(a, b string) int {
	ta, aok := types.ParseTimestamp(a)
	tb, bok := types.ParseTimestamp(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return ta.Compare(tb)
}

func newResolved(stage types.Stage, record types.PipelineStepRecord, synthesized bool) types.ResolvedStage {
	percent, progress := status.Progress(record)
	return types.ResolvedStage{
		Stage:       stage,
		Record:      record,
		Status:      status.Normalize(record.Status),
		Percent:     percent,
		Progress:    progress,
		Synthesized: synthesized,
	}
}

func sourceStage() types.ResolvedStage {
	return newResolved(types.StageSource, types.PipelineStepRecord{
		StepName: string(types.StageSource),
		Status:   string(status.Success),
	}, true)
}
