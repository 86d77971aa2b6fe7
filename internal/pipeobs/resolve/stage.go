// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

var operateMarkers = []string{"monitor", "ops", "operat"}

var stageAliases = map[string]types.Stage{
	"source":   types.StageSource,
	"checkout": types.StageSource,
	"clone":    types.StageSource,
	"scm":      types.StageSource,
	"ci":       types.StageBuild,
	"compile":  types.StageBuild,
	"release":  types.StageDeploy,
	"rollout":  types.StageDeploy,
}

// NormalizeStageName maps a backend step name onto a canonical stage.
// Substring rules are checked first (deploy, then operate, then build), then exact aliases.
func NormalizeStageName(name string) (types.Stage, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}

	switch {
	case strings.Contains(n, "deploy"):
		return types.StageDeploy, true
	case containsAny(n, operateMarkers):
		return types.StageOperate, true
	case strings.Contains(n, "build") && !strings.Contains(n, "rebuild"):
		return types.StageBuild, true
	}

	if stage, ok := stageAliases[n]; ok {
		return stage, true
	}
	return types.ParseStage(n)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
