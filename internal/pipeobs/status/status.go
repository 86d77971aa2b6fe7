// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package status maps free-form backend status strings onto canonical categories and
// derives display progress for a resolved stage record.
package status

import (
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// Re-export category types so callers can import just this package.
type (
	Category         = types.StatusCategory
	ProgressCategory = types.ProgressCategory
)

const (
	Success  = types.CategorySuccess
	Running  = types.CategoryRunning
	Failed   = types.CategoryFailed
	Pending  = types.CategoryPending
	Inactive = types.CategoryInactive
)

// aliases maps a lowercased, underscore-joined status onto its category.
// Misspellings seen from real backends are listed alongside the canonical spellings.
var aliases = map[string]Category{
	"success":    Success,
	"succeeded":  Success,
	"successful": Success,
	"completed":  Success,
	"complete":   Success,
	"done":       Success,
	"finished":   Success,
	"sucess":     Success,
	"succes":     Success,
	"successs":   Success,
	"succeded":   Success,
	"sucessful":  Success,
	"completd":   Success,

	"running":     Running,
	"in_progress": Running,
	"inprogress":  Running,
	"processing":  Running,
	"progress":    Running,

	"failed":    Failed,
	"failure":   Failed,
	"error":     Failed,
	"errored":   Failed,
	"cancelled": Failed,
	"canceled":  Failed,

	"pending": Pending,
	"queued":  Pending,
	"waiting": Pending,
}

var separatorReplacer = strings.NewReplacer("-", "_", " ", "_")

// Normalize maps any backend status string to a canonical category.
// Unknown and empty input map to Inactive.
func Normalize(raw string) Category {
	key := separatorReplacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if category, ok := aliases[key]; ok {
		return category
	}
	return Inactive
}
