// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
	"github.com/noldarim/opsdash/internal/store"
)

// MemorySnapshots is an in-memory stand-in for the snapshot store
type MemorySnapshots struct {
	mu      sync.RWMutex
	logs    map[string][]types.LogEntry
	records map[string][]types.PipelineStepRecord

	// Err, when set, is returned by every read
	Err error
}

// NewMemorySnapshots creates an empty snapshot source
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{
		logs:    make(map[string][]types.LogEntry),
		records: make(map[string][]types.PipelineStepRecord),
	}
}

// AddLogs appends log entries for a service
func (m *MemorySnapshots) AddLogs(serviceID string, logs ...types.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[serviceID] = append(m.logs[serviceID], logs...)
}

// AddRecords appends step records for a service
func (m *MemorySnapshots) AddRecords(serviceID string, records ...types.PipelineStepRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[serviceID] = append(m.records[serviceID], records...)
}

func (m *MemorySnapshots) LogEntries(_ context.Context, serviceID string) ([]types.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	logs, ok := m.logs[serviceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]types.LogEntry(nil), logs...), nil
}

func (m *MemorySnapshots) StepRecords(_ context.Context, serviceID string) ([]types.PipelineStepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	records, ok := m.records[serviceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]types.PipelineStepRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *MemorySnapshots) Services(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ids := lo.Uniq(append(lo.Keys(m.logs), lo.Keys(m.records)...))
	sort.Strings(ids)
	return ids, nil
}
