// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

type styles struct {
	dim     lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	accent  lipgloss.Style
	header  lipgloss.Style
}

// newStyles binds styles to out so color output follows what out supports.
func newStyles(out io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(out)
	if noColor {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		dim:     r.NewStyle().Foreground(lipgloss.Color("239")),
		label:   r.NewStyle().Foreground(lipgloss.Color("245")),
		value:   r.NewStyle().Foreground(lipgloss.Color("252")),
		success: r.NewStyle().Foreground(lipgloss.Color("35")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("196")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("226")),
		accent:  r.NewStyle().Foreground(lipgloss.Color("75")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
	}
}

func (s styles) field(name, value string) string {
	return fmt.Sprintf("%s %s", s.label.Render(fmt.Sprintf("%-11s", name+":")), s.value.Render(value))
}

// renderMetrics renders deployment metrics as a summary block followed by steps, errors
// and warnings.
func renderMetrics(m types.DeployMetrics, s styles) string {
	var lines []string

	lines = append(lines, renderMetricsStatus(m.Status, s))
	if m.Namespace != nil {
		lines = append(lines, s.field("Namespace", *m.Namespace))
	}
	for i, img := range m.Images {
		name := "Image"
		if i > 0 {
			name = ""
		}
		lines = append(lines, s.field(name, img.FullPath))
	}
	if m.Duration != nil {
		lines = append(lines, s.field("Duration", formatSeconds(*m.Duration)))
	}
	if m.DeployTime != nil {
		lines = append(lines, s.field("Deployed", *m.DeployTime))
	}

	if len(m.Steps) > 0 {
		lines = append(lines, "", s.header.Render("Steps"))
		width := 0
		for _, step := range m.Steps {
			width = max(width, len(step.Name))
		}
		for _, step := range m.Steps {
			line := fmt.Sprintf("  %s %s", stepIcon(step.Status, s), s.value.Render(fmt.Sprintf("%-*s", width, step.Name)))
			if step.Timestamp != nil {
				line += "  " + s.dim.Render(*step.Timestamp)
			}
			if step.HasMessage() {
				line += "  " + s.dim.Render(types.FirstLine(*step.Message))
			}
			lines = append(lines, line)
		}
	}

	if len(m.Errors) > 0 {
		lines = append(lines, "", s.fail.Bold(true).Render("Errors"))
		for _, e := range m.Errors {
			lines = append(lines, "  "+s.fail.Render("- "+types.FirstLine(e)))
		}
	}
	if len(m.Warnings) > 0 {
		lines = append(lines, "", s.warn.Bold(true).Render("Warnings"))
		for _, w := range m.Warnings {
			lines = append(lines, "  "+s.warn.Render("- "+types.FirstLine(w)))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderMetricsStatus(st types.MetricsStatus, s styles) string {
	switch st {
	case types.MetricsStatusSuccess:
		return s.success.Render("✓") + " " + s.success.Bold(true).Render("Success")
	case types.MetricsStatusFailed:
		return s.fail.Render("✗") + " " + s.fail.Bold(true).Render("Failed")
	case types.MetricsStatusRunning:
		return s.accent.Render("◦") + " " + s.accent.Bold(true).Render("Running")
	default:
		return s.label.Render("○") + " " + s.label.Bold(true).Render("Pending")
	}
}

func stepIcon(st types.StepStatus, s styles) string {
	switch st {
	case types.StepStatusSuccess:
		return s.success.Render("✓")
	case types.StepStatusFailed:
		return s.fail.Render("✗")
	case types.StepStatusInProgress:
		return s.accent.Render("◦")
	default:
		return s.dim.Render("-")
	}
}

// renderOverview renders one row per resolved stage and the folded pipeline status.
func renderOverview(o pipeobs.PipelineOverview, s styles) string {
	var lines []string
	lines = append(lines, s.header.Render(fmt.Sprintf("%-9s %-9s %8s  %s", "STAGE", "STATUS", "PROGRESS", "RECORD")))

	for _, st := range o.Stages {
		record := fmt.Sprintf("#%d %s", st.Record.ID, st.Record.StepName)
		if st.Synthesized {
			record += " (derived)"
		}
		if st.Stage == types.StageSource && st.Synthesized {
			record = "(implicit)"
		}
		lines = append(lines, fmt.Sprintf("%-9s %s %8s  %s",
			string(st.Stage),
			categoryStyle(st.Status, s).Render(fmt.Sprintf("%-9s", st.Status)),
			fmt.Sprintf("%d%%", st.Percent),
			s.dim.Render(record)))
		if st.Record.ErrorMessage != "" {
			lines = append(lines, "          "+s.fail.Render(types.FirstLine(st.Record.ErrorMessage)))
		}
	}

	if len(o.Stages) == 0 {
		lines = append(lines, s.dim.Render("(no stage evidence)"))
	}
	lines = append(lines, "", fmt.Sprintf("%s %s", s.label.Render("Overall:"), categoryStyle(o.Overall, s).Bold(true).Render(string(o.Overall))))
	return strings.Join(lines, "\n") + "\n"
}

func categoryStyle(c types.StatusCategory, s styles) lipgloss.Style {
	switch c {
	case types.CategorySuccess:
		return s.success
	case types.CategoryFailed:
		return s.fail
	case types.CategoryRunning:
		return s.accent
	case types.CategoryPending:
		return s.warn
	default:
		return s.dim
	}
}

func formatSeconds(sec int64) string {
	if sec < 60 {
		return fmt.Sprintf("%ds", sec)
	}
	if sec < 3600 {
		return fmt.Sprintf("%dm %ds", sec/60, sec%60)
	}
	return fmt.Sprintf("%dh %dm", sec/3600, (sec%3600)/60)
}
