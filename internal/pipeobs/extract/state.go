// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"github.com/noldarim/opsdash/internal/pipeobs/dedup"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

var _ patterns.Accumulator = (*state)(nil)

// state accumulates one extraction run. It is created per call and never shared.
type state struct {
	collector *dedup.Collector
	images    []types.ImageRef
	seen      map[string]struct{}
	failed    bool
}

func newState() *state {
	return &state{
		collector: dedup.NewCollector(),
		images:    []types.ImageRef{},
		seen:      make(map[string]struct{}),
	}
}

// AddStep records step. A finished step settles an earlier in-progress poll of the same name.
func (s *state) AddStep(step types.Step) {
	if step.Status == types.StepStatusSuccess || step.Status == types.StepStatusFailed {
		s.collector.Settle(step.Name)
	}
	s.collector.AddStep(step)
}

func (s *state) AddError(msg string) {
	if msg != "" {
		s.collector.AddError(msg)
	}
}

// AddImage records an image reference once, keyed by the full reference.
func (s *state) AddImage(ref string) {
	img := patterns.SplitImage(ref)
	if img.FullPath == "" {
		return
	}
	if _, ok := s.seen[img.FullPath]; ok {
		return
	}
	s.seen[img.FullPath] = struct{}{}
	s.images = append(s.images, img)
}

func (s *state) MarkFailed() {
	s.failed = true
}
