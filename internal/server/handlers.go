// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/pipeobs/resolve"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
	"github.com/noldarim/opsdash/internal/store"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc       *pipeobs.Service
	snapshots SnapshotSource
}

// NewHandlers creates the handler set.
func NewHandlers(svc *pipeobs.Service, snapshots SnapshotSource) *Handlers {
	return &Handlers{svc: svc, snapshots: snapshots}
}

// DeployMetricsRequest is the body of POST /api/v1/deploy/metrics.
type DeployMetricsRequest struct {
	Logs []types.LogEntry `json:"logs"`
}

// PipelineStagesRequest is the body of POST /api/v1/pipeline/stages.
// Stages may use aliases ("ci", "release", ...); empty means all canonical stages.
type PipelineStagesRequest struct {
	Records []types.PipelineStepRecord `json:"records"`
	Stages  []string                   `json:"stages"`
}

// ServicesResponse lists the services with stored snapshots.
type ServicesResponse struct {
	Services []string `json:"services"`
}

// RuleView is the JSON form of a catalog rule.
type RuleView struct {
	Name     string               `json:"name"`
	Label    string               `json:"label"`
	Kind     patterns.HandlerKind `json:"kind"`
	Critical bool                 `json:"critical"`
}

// PatternsResponse describes the active pattern catalog.
type PatternsResponse struct {
	Rules         []RuleView `json:"rules"`
	InertCommands []string   `json:"inert_commands"`
}

// NewPatternsResponse describes catalog in table order.
func NewPatternsResponse(catalog *patterns.Catalog) PatternsResponse {
	return PatternsResponse{
		Rules: lo.Map(catalog.Rules(), func(r patterns.Rule, _ int) RuleView {
			return RuleView{Name: r.Name, Label: r.Label, Kind: r.Kind, Critical: r.Critical}
		}),
		InertCommands: catalog.InertCommands(),
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["context"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeStoreError maps snapshot lookup failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msg, err)
		return
	}
	writeError(w, http.StatusInternalServerError, msg, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	return true
}

// parseStages maps requested stage names onto canonical stages, accepting aliases.
func parseStages(names []string) ([]types.Stage, error) {
	stages := make([]types.Stage, 0, len(names))
	for _, name := range names {
		stage, ok := resolve.NormalizeStageName(name)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// --- handlers ---

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeployMetrics handles POST /api/v1/deploy/metrics
func (h *Handlers) DeployMetrics(w http.ResponseWriter, r *http.Request) {
	var body DeployMetricsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.DeployMetrics(r.Context(), body.Logs))
}

// PipelineStages handles POST /api/v1/pipeline/stages
func (h *Handlers) PipelineStages(w http.ResponseWriter, r *http.Request) {
	var body PipelineStagesRequest
	if !decodeBody(w, r, &body) {
		return
	}
	stages, err := parseStages(body.Stages)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stage", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Overview(r.Context(), body.Records, stages...))
}

// GetPatterns handles GET /api/v1/patterns
func (h *Handlers) GetPatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewPatternsResponse(h.svc.Catalog()))
}

// GetServices handles GET /api/v1/services
func (h *Handlers) GetServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.snapshots.Services(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to load services", err)
		return
	}
	if services == nil {
		services = []string{}
	}
	writeJSON(w, http.StatusOK, ServicesResponse{Services: services})
}

// GetServiceDeployMetrics handles GET /api/v1/services/{id}/deploy-metrics
func (h *Handlers) GetServiceDeployMetrics(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "id")
	logs, err := h.snapshots.LogEntries(r.Context(), serviceID)
	if err != nil {
		writeStoreError(w, "Failed to load deploy logs", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.DeployMetrics(r.Context(), logs))
}

// GetServiceStages handles GET /api/v1/services/{id}/stages
// An optional repeated ?stage= query parameter narrows the result.
func (h *Handlers) GetServiceStages(w http.ResponseWriter, r *http.Request) {
	stages, err := parseStages(r.URL.Query()["stage"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stage", err)
		return
	}

	serviceID := chi.URLParam(r, "id")
	records, err := h.snapshots.StepRecords(r.Context(), serviceID)
	if err != nil {
		writeStoreError(w, "Failed to load step records", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Overview(r.Context(), records, stages...))
}
