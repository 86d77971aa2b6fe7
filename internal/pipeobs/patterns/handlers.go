// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// HandlerKind names a built-in handler. Catalog rules bind to handlers by kind.
type HandlerKind string

const (
	// KindGeneric: success or failure from the exit code.
	KindGeneric HandlerKind = "generic"
	// KindIdempotent: like generic, but "already exists" counts as success.
	KindIdempotent HandlerKind = "idempotent"
	// KindManifestApply: like generic, but a failure fails the whole deployment at once and
	// records the error text verbatim.
	KindManifestApply HandlerKind = "manifest-apply"
	// KindImageScan: generic step plus image references scanned from the output.
	KindImageScan HandlerKind = "image-scan"
	// KindInspect: image references only. A failed read still reports a failed step.
	KindInspect HandlerKind = "inspect"
	// KindStatusPoll: a successful poll whose last output line still reports waiting
	// workloads is in progress.
	KindStatusPoll HandlerKind = "status-poll"
	// KindBestEffort: failures are reported as skipped rather than failed.
	KindBestEffort HandlerKind = "best-effort"
)

var handlers = map[HandlerKind]Handler{
	KindGeneric:       handleGeneric,
	KindIdempotent:    handleIdempotent,
	KindManifestApply: handleManifestApply,
	KindImageScan:     handleImageScan,
	KindInspect:       handleInspect,
	KindStatusPoll:    handleStatusPoll,
	KindBestEffort:    handleBestEffort,
}

// KnownKind reports whether kind names a built-in handler.
func KnownKind(kind HandlerKind) bool {
	_, ok := handlers[kind]
	return ok
}

// Kinds returns the built-in handler kinds.
func Kinds() []HandlerKind {
	return []HandlerKind{
		KindGeneric, KindIdempotent, KindManifestApply, KindImageScan,
		KindInspect, KindStatusPoll, KindBestEffort,
	}
}

func handleGeneric(rule Rule, entry types.LogEntry, acc Accumulator) {
	status := types.StepStatusFromExitCode(entry.ExitCode)
	acc.AddStep(newStep(rule, entry, status, failureMessage(entry, status)))
	if status == types.StepStatusFailed {
		recordCriticalFailure(rule, entry, acc)
	}
}

const alreadyExistsMarker = "already exists"

func handleIdempotent(rule Rule, entry types.LogEntry, acc Accumulator) {
	if entry.Failed() && containsFold(entry.Error+"\n"+entry.Output, alreadyExistsMarker) {
		msg := firstLineContaining(entry.Error+"\n"+entry.Output, alreadyExistsMarker)
		acc.AddStep(newStep(rule, entry, types.StepStatusSuccess, msg))
		return
	}
	handleGeneric(rule, entry, acc)
}

func handleManifestApply(rule Rule, entry types.LogEntry, acc Accumulator) {
	status := types.StepStatusFromExitCode(entry.ExitCode)
	acc.AddStep(newStep(rule, entry, status, failureMessage(entry, status)))
	if status != types.StepStatusFailed {
		return
	}
	acc.MarkFailed()
	verbatim := strings.TrimSpace(entry.Error)
	if verbatim == "" {
		verbatim = strings.TrimSpace(entry.Output)
	}
	if verbatim == "" {
		verbatim = rule.Label + " failed"
	}
	acc.AddError(verbatim)
}

func handleImageScan(rule Rule, entry types.LogEntry, acc Accumulator) {
	handleGeneric(rule, entry, acc)
	addImages(entry, acc)
}

func handleInspect(rule Rule, entry types.LogEntry, acc Accumulator) {
	if entry.Failed() {
		handleGeneric(rule, entry, acc)
		return
	}
	addImages(entry, acc)
}

func addImages(entry types.LogEntry, acc Accumulator) {
	for _, ref := range ScanImages(entry.Output) {
		acc.AddImage(ref)
	}
}

var completionMarkers = []string{
	"successfully rolled out",
	"(healthy)",
}

var waitingMarkers = []string{
	"waiting for",
	"containercreating",
	"pending",
	"progressing",
	"starting",
}

// handleStatusPoll reads the verdict from the last non-empty output line. Rollout
// watchers print their waiting lines before the final result.
func handleStatusPoll(rule Rule, entry types.LogEntry, acc Accumulator) {
	if !entry.Failed() {
		last := lastLine(entry.Output)
		if stillWaiting(last) {
			acc.AddStep(newStep(rule, entry, types.StepStatusInProgress, last))
			return
		}
	}
	handleGeneric(rule, entry, acc)
}

func stillWaiting(line string) bool {
	for _, m := range completionMarkers {
		if containsFold(line, m) {
			return false
		}
	}
	for _, m := range waitingMarkers {
		if containsFold(line, m) {
			return true
		}
	}
	return false
}

func handleBestEffort(rule Rule, entry types.LogEntry, acc Accumulator) {
	if entry.Failed() {
		acc.AddStep(newStep(rule, entry, types.StepStatusSkipped, failureMessage(entry, types.StepStatusFailed)))
		return
	}
	acc.AddStep(newStep(rule, entry, types.StepStatusSuccess, ""))
}

func newStep(rule Rule, entry types.LogEntry, status types.StepStatus, msg string) types.Step {
	step := types.Step{Name: rule.Label, Status: status}
	if msg != "" {
		step.Message = types.Ptr(msg)
	}
	if ts := strings.TrimSpace(entry.Timestamp); ts != "" {
		step.Timestamp = types.Ptr(ts)
	}
	return step
}

// failureMessage is the first line of the error text, falling back to the output.
func failureMessage(entry types.LogEntry, status types.StepStatus) string {
	if status != types.StepStatusFailed {
		return ""
	}
	if line := types.FirstLine(entry.Error); line != "" {
		return line
	}
	return types.FirstLine(entry.Output)
}

func recordCriticalFailure(rule Rule, entry types.LogEntry, acc Accumulator) {
	if !rule.Critical {
		return
	}
	if msg := failureMessage(entry, types.StepStatusFailed); msg != "" {
		acc.AddError(rule.Label + ": " + msg)
		return
	}
	acc.AddError(rule.Label + " failed")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func firstLineContaining(s, substr string) string {
	for _, line := range strings.Split(s, "\n") {
		if containsFold(line, substr) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
