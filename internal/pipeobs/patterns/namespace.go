// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"regexp"
	"strings"
)

var (
	createNamespace = regexp.MustCompile(`\bkubectl\b.*\bcreate\s+(?:namespace|ns)\s+([a-z0-9][a-z0-9.-]*)`)
	namespaceFlag   = regexp.MustCompile(`(?:^|\s)(?:-n|--namespace)(?:\s+|=)["']?([a-z0-9][a-z0-9.-]*)`)
	namespacedTool  = regexp.MustCompile(`\b(?:kubectl|helm|kustomize)\b`)
)

// NamespaceFromCommand extracts the Kubernetes namespace a command targets, either the one it
// creates or the one passed with -n/--namespace.
func NamespaceFromCommand(command string) (string, bool) {
	cmd := NormalizeCommand(command)
	if !namespacedTool.MatchString(cmd) {
		return "", false
	}
	if m := createNamespace.FindStringSubmatch(cmd); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := namespaceFlag.FindStringSubmatch(cmd); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
