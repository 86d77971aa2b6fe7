// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dedup collects steps, errors and warnings during extraction and collapses the
// duplicates that repeated pattern matches over a growing log produce.
package dedup

import (
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

type stepKey struct {
	name   string
	status types.StepStatus
}

// Collector accumulates de-duplicated steps, errors and warnings in insertion order.
// The zero value is not usable; call NewCollector.
type Collector struct {
	steps     []types.Step
	stepIndex map[stepKey]int

	errors   *stringSet
	warnings *stringSet
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		steps:     []types.Step{},
		stepIndex: make(map[stepKey]int),
		errors:    newStringSet(),
		warnings:  newStringSet(),
	}
}

// AddStep records a step keyed by (name, status). The first occurrence keeps its position;
// a later duplicate only replaces it when the kept record has no message and the new one does.
func (c *Collector) AddStep(step types.Step) {
	key := stepKey{name: step.Name, status: step.Status}
	idx, exists := c.stepIndex[key]
	if !exists {
		c.stepIndex[key] = len(c.steps)
		c.steps = append(c.steps, step)
		return
	}
	c.steps[idx] = mergeStep(c.steps[idx], step)
}

// Settle drops the in-progress record for name, if any. Later records keep their order.
func (c *Collector) Settle(name string) {
	key := stepKey{name: name, status: types.StepStatusInProgress}
	idx, ok := c.stepIndex[key]
	if !ok {
		return
	}
	delete(c.stepIndex, key)
	c.steps = append(c.steps[:idx], c.steps[idx+1:]...)
	for k, i := range c.stepIndex {
		if i > idx {
			c.stepIndex[k] = i - 1
		}
	}
}

// mergeStep keeps the existing record unless it lacks the message the incoming one carries.
func mergeStep(existing, incoming types.Step) types.Step {
	if !existing.HasMessage() && incoming.HasMessage() {
		return incoming
	}
	return existing
}

// AddError records an error message once.
func (c *Collector) AddError(msg string) {
	c.errors.add(msg)
}

// AddWarning records a warning message once.
func (c *Collector) AddWarning(msg string) {
	c.warnings.add(msg)
}

// Steps returns a copy of the collected steps.
func (c *Collector) Steps() []types.Step {
	out := make([]types.Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Errors returns a copy of the collected errors.
func (c *Collector) Errors() []string {
	return c.errors.values()
}

// Warnings returns a copy of the collected warnings.
func (c *Collector) Warnings() []string {
	return c.warnings.values()
}

// HasFailedStep reports whether any collected step failed.
func (c *Collector) HasFailedStep() bool {
	for _, s := range c.steps {
		if s.Status == types.StepStatusFailed {
			return true
		}
	}
	return false
}

// HasErrors reports whether any error was recorded.
func (c *Collector) HasErrors() bool {
	return len(c.errors.items) > 0
}

type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *stringSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *stringSet) values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
