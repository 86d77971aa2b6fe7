// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
)

type patternRow struct {
	Name     string               `json:"name"`
	Label    string               `json:"label"`
	Kind     patterns.HandlerKind `json:"kind"`
	Critical bool                 `json:"critical"`
}

type patternsOutput struct {
	Rules         []patternRow           `json:"rules"`
	InertCommands []string               `json:"inert_commands"`
	HandlerKinds  []patterns.HandlerKind `json:"handler_kinds"`
}

// patternsCommand handles the patterns subcommand
func patternsCommand(args []string, stdout, stderr io.Writer) error {
	opts := &commonOptions{}
	fs := newFlagSet("patterns", stderr)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("patterns takes no arguments")
	}

	svc, closeFn, err := opts.service()
	if err != nil {
		return err
	}
	defer closeFn()

	catalog := svc.Catalog()
	out := patternsOutput{InertCommands: catalog.InertCommands(), HandlerKinds: patterns.Kinds()}
	for _, r := range catalog.Rules() {
		out.Rules = append(out.Rules, patternRow{Name: r.Name, Label: r.Label, Kind: r.Kind, Critical: r.Critical})
	}

	if opts.json {
		return writeJSON(stdout, out)
	}

	s := newStyles(stdout, opts.noColor)
	var lines []string
	lines = append(lines, s.header.Render(fmt.Sprintf("%-3s %-20s %-15s %-26s %s", "#", "NAME", "KIND", "STEP", "CRITICAL")))
	for i, r := range out.Rules {
		critical := ""
		if r.Critical {
			critical = s.fail.Render("yes")
		}
		lines = append(lines, fmt.Sprintf("%-3d %s %s %s %s",
			i+1,
			s.accent.Render(fmt.Sprintf("%-20s", r.Name)),
			s.dim.Render(fmt.Sprintf("%-15s", r.Kind)),
			s.value.Render(fmt.Sprintf("%-26s", r.Label)),
			critical))
	}
	lines = append(lines, "", fmt.Sprintf("%s %s", s.label.Render("Inert reads:"), strings.Join(out.InertCommands, ", ")))
	kinds := make([]string, len(out.HandlerKinds))
	for i, k := range out.HandlerKinds {
		kinds[i] = string(k)
	}
	lines = append(lines, fmt.Sprintf("%s %s", s.label.Render("Handler kinds:"), strings.Join(kinds, ", ")))
	_, err = fmt.Fprintln(stdout, strings.Join(lines, "\n"))
	return err
}
