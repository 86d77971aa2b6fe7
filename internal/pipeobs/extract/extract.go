// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract derives deployment metrics from the ordered shell-command transcript a
// deployment backend leaves behind.
//
// Extraction is a pure function of the log snapshot: it never fails, never panics and keeps
// no state between calls. Malformed timestamps omit the dependent fields, unrecognized
// commands contribute nothing and detected failures become failed steps plus error entries.
package extract

import (
	"strings"
	"time"

	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// DeployTimeLayout is the layout of DeployMetrics.DeployTime.
const DeployTimeLayout = "2006-01-02 15:04:05"

// TimeoutStepName labels the step synthesized when a deployment timed out without any
// recognized step failing.
const TimeoutStepName = "Execute deployment"

var timeoutMarkers = []string{"timeout", "timed out"}

const warningMarker = "warning"

// Extractor turns log snapshots into DeployMetrics using a pattern catalog.
// An Extractor is safe for concurrent use.
type Extractor struct {
	catalog *patterns.Catalog
}

// New creates an extractor over catalog. A nil catalog selects patterns.Default().
func New(catalog *patterns.Catalog) *Extractor {
	if catalog == nil {
		catalog = patterns.Default()
	}
	return &Extractor{catalog: catalog}
}

var defaultExtractor = New(nil)

// Extract derives metrics with the built-in catalog.
func Extract(logs []types.LogEntry) types.DeployMetrics {
	return defaultExtractor.Extract(logs)
}

// Catalog returns the catalog the extractor matches against.
func (e *Extractor) Catalog() *patterns.Catalog {
	return e.catalog
}

// Extract derives DeployMetrics from logs, which are assumed to be in ascending time order.
func (e *Extractor) Extract(logs []types.LogEntry) types.DeployMetrics {
	metrics := types.NewDeployMetrics()
	st := newState()

	if start, end, ok := timeBounds(logs); ok {
		metrics.Duration = types.Ptr(int64(end.Sub(start) / time.Second))
		metrics.DeployTime = types.Ptr(end.UTC().Format(DeployTimeLayout))
	}

	var timeoutMsg string
	timedOut := false

	for _, entry := range logs {
		if metrics.Namespace == nil {
			if ns, ok := patterns.NamespaceFromCommand(entry.Command); ok {
				metrics.Namespace = types.Ptr(ns)
			}
		}

		if !timedOut {
			if msg, ok := e.timeoutEvidence(entry); ok {
				timedOut = true
				timeoutMsg = msg
			}
		}

		if rule, ok := e.catalog.Match(entry); ok {
			rule.Handle(entry, st)
		}

		if !entry.Failed() && containsFold(entry.Output, warningMarker) {
			st.collector.AddWarning(strings.TrimSpace(entry.Output))
		}
	}

	if timedOut {
		if !st.collector.HasFailedStep() {
			step := types.Step{Name: TimeoutStepName, Status: types.StepStatusFailed}
			if timeoutMsg != "" {
				step.Message = types.Ptr(timeoutMsg)
			}
			st.collector.AddStep(step)
		}
		st.collector.AddError(timeoutError(timeoutMsg))
	}

	metrics.Steps = st.collector.Steps()
	metrics.Errors = st.collector.Errors()
	metrics.Warnings = st.collector.Warnings()
	metrics.Images = st.images
	if len(st.images) > 0 {
		metrics.ImageName = types.Ptr(st.images[0].Name)
		metrics.ImageTag = types.Ptr(st.images[0].Tag)
	}
	metrics.Status = finalStatus(timedOut, st, metrics.Steps)

	return metrics
}

// timeoutEvidence reports whether a failed entry reports a timeout, returning the first line
// of the text that mentions it. Inert reads are ignored: a dumped config that mentions
// "timeout" is not evidence.
func (e *Extractor) timeoutEvidence(entry types.LogEntry) (string, bool) {
	if !entry.Failed() || e.catalog.IsInertRead(entry.Command) {
		return "", false
	}
	for _, text := range []string{entry.Error, entry.Output} {
		if mentionsTimeout(text) {
			return types.FirstLine(text), true
		}
	}
	return "", false
}

func timeoutError(msg string) string {
	if msg == "" {
		return "deployment timed out"
	}
	return "deployment timed out: " + msg
}

func mentionsTimeout(s string) bool {
	for _, m := range timeoutMarkers {
		if containsFold(s, m) {
			return true
		}
	}
	return false
}

// timeBounds returns the first and last parseable timestamps when end is not before start.
func timeBounds(logs []types.LogEntry) (start, end time.Time, ok bool) {
	first := -1
	for i, entry := range logs {
		if t, parsed := types.ParseTimestamp(entry.Timestamp); parsed {
			start, first = t, i
			break
		}
	}
	if first < 0 {
		return time.Time{}, time.Time{}, false
	}
	for i := len(logs) - 1; i >= first; i-- {
		if t, parsed := types.ParseTimestamp(logs[i].Timestamp); parsed {
			end = t
			break
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// finalStatus applies the precedence failed > success > running > pending.
func finalStatus(timedOut bool, st *state, steps []types.Step) types.MetricsStatus {
	switch {
	case timedOut || st.failed || st.collector.HasFailedStep() || st.collector.HasErrors():
		return types.MetricsStatusFailed
	case len(steps) == 0:
		return types.MetricsStatusPending
	}
	for _, s := range steps {
		if s.Status != types.StepStatusSuccess {
			return types.MetricsStatusRunning
		}
	}
	return types.MetricsStatusSuccess
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
