// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package patterns holds the ordered recognition table that maps shell-command transcripts
// from deployment backends (git, docker-compose, kubectl) onto deployment steps.
//
// The table is data: each Rule pairs a Predicate with a Handler, the first matching rule
// handles an entry, and rules can be relabelled, extended or added from a YAML catalog.
package patterns

import (
	"regexp"
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// Accumulator receives what a handler recognizes in a log entry.
type Accumulator interface {
	AddStep(step types.Step)
	AddError(msg string)
	AddImage(ref string)
	// MarkFailed forces the overall deployment status to failed.
	MarkFailed()
}

// Predicate decides whether a rule applies to a log entry.
type Predicate func(entry types.LogEntry) bool

// Handler turns a matched log entry into steps, errors and images.
type Handler func(rule Rule, entry types.LogEntry, acc Accumulator)

// Rule is one row of the recognition table.
type Rule struct {
	Name     string      // stable identifier, used by catalog overrides
	Label    string      // user-facing step name
	Kind     HandlerKind // handler the rule dispatches to
	Critical bool        // failures also record an error entry
	Match    Predicate
}

// Handle dispatches the entry to the rule's handler kind.
// Rules with an unknown kind contribute nothing.
func (r Rule) Handle(entry types.LogEntry, acc Accumulator) {
	if h, ok := handlers[r.Kind]; ok {
		h(r, entry, acc)
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeCommand lowercases a command and collapses runs of whitespace, so predicates can
// match "docker  compose" and "Docker Compose" alike.
func NormalizeCommand(cmd string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(cmd), " "))
}

// CommandContains matches entries whose normalized command contains any of the markers.
func CommandContains(markers ...string) Predicate {
	normalized := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = NormalizeCommand(m); m != "" {
			normalized = append(normalized, m)
		}
	}
	return func(entry types.LogEntry) bool {
		cmd := NormalizeCommand(entry.Command)
		for _, m := range normalized {
			if strings.Contains(cmd, m) {
				return true
			}
		}
		return false
	}
}

// CommandMatches matches entries whose normalized command matches re.
func CommandMatches(re *regexp.Regexp) Predicate {
	return func(entry types.LogEntry) bool {
		return re.MatchString(NormalizeCommand(entry.Command))
	}
}

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	return func(entry types.LogEntry) bool {
		for _, p := range preds {
			if !p(entry) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any(preds ...Predicate) Predicate {
	return func(entry types.LogEntry) bool {
		for _, p := range preds {
			if p(entry) {
				return true
			}
		}
		return false
	}
}
