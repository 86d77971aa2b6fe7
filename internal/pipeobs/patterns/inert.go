// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"path"
	"regexp"
	"strings"
)

// DefaultInertCommands are programs that only read and print. Their output may mention
// failures (a dumped config with "timeout: 30s", a grep for "error") without anything
// having failed.
var DefaultInertCommands = []string{
	"cat", "head", "tail", "less", "more",
	"grep", "egrep", "fgrep", "ls", "echo", "printf",
	"stat", "wc", "file", "diff", "find",
}

var segmentSeparator = regexp.MustCompile(`&&|\|\||;|\|`)

// isInertRead reports whether every segment of a shell command is either a read-only
// program from inert or a directory change, with at least one read.
func isInertRead(command string, inert map[string]struct{}) bool {
	reads := 0
	for _, segment := range segmentSeparator.Split(NormalizeCommand(command), -1) {
		program := programName(segment)
		if program == "" || program == "cd" {
			continue
		}
		if _, ok := inert[program]; !ok {
			return false
		}
		reads++
	}
	return reads > 0
}

// programName returns the base name of the program a shell segment runs, skipping sudo and
// leading VAR=value assignments.
func programName(segment string) string {
	for _, field := range strings.Fields(segment) {
		if field == "sudo" {
			continue
		}
		if isAssignment(field) {
			continue
		}
		return path.Base(field)
	}
	return ""
}

func isAssignment(field string) bool {
	eq := strings.IndexByte(field, '=')
	return eq > 0 && !strings.ContainsAny(field[:eq], `"'/-`)
}
