// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// AssertUniqueSteps verifies that no two steps share a (name, status) pair
func AssertUniqueSteps(t *testing.T, steps []types.Step) {
	t.Helper()
	seen := make(map[string]bool)
	for _, s := range steps {
		key := s.Name + "\x00" + string(s.Status)
		assert.False(t, seen[key], "duplicate step %q with status %q", s.Name, s.Status)
		seen[key] = true
	}
}

// AssertStep verifies that a step with the given name and status is present
func AssertStep(t *testing.T, steps []types.Step, name string, status types.StepStatus) {
	t.Helper()
	for _, s := range steps {
		if s.Name == name && s.Status == status {
			return
		}
	}
	assert.Failf(t, "step not found", "expected step %q with status %q in %v", name, status, steps)
}

// FindStep returns the first step with the given name
func FindStep(steps []types.Step, name string) (types.Step, bool) {
	for _, s := range steps {
		if s.Name == name {
			return s, true
		}
	}
	return types.Step{}, false
}
