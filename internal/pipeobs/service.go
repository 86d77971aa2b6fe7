// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeobs provides pipeline observability: it derives deployment metrics from
// command transcripts and resolves pipeline stages from polled status records.
//
// The derivation itself lives in the extract and resolve subpackages and is pure. Service
// wraps it for the API and CLI with tracing and debug logging.
package pipeobs

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noldarim/opsdash/internal/logger"
	"github.com/noldarim/opsdash/internal/pipeobs/extract"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/pipeobs/resolve"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
	"github.com/noldarim/opsdash/internal/telemetry"
)

// PipelineOverview is the resolved state of every stage plus the folded pipeline status.
type PipelineOverview struct {
	Stages  []types.ResolvedStage `json:"stages"`
	Overall types.StatusCategory  `json:"overall"`
}

// Service provides pipeline observability capabilities.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	extractor *extract.Extractor
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog makes the service recognize commands with catalog instead of the built-in one.
func WithCatalog(catalog *patterns.Catalog) Option {
	return func(s *Service) {
		s.extractor = extract.New(catalog)
	}
}

// WithTracer overrides the tracer, mainly for tests.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// NewService creates a new pipeline observability service.
func NewService(opts ...Option) *Service {
	s := &Service{
		extractor: extract.New(nil),
		tracer:    telemetry.Tracer("pipeobs"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the pattern catalog in use.
func (s *Service) Catalog() *patterns.Catalog {
	return s.extractor.Catalog()
}

// DeployMetrics derives deployment metrics from a log snapshot.
func (s *Service) DeployMetrics(ctx context.Context, logs []types.LogEntry) types.DeployMetrics {
	ctx, span := s.tracer.Start(ctx, "pipeobs.DeployMetrics",
		trace.WithAttributes(attribute.Int("pipeobs.log_entries", len(logs))))
	defer span.End()

	metrics := s.extractor.Extract(logs)

	span.SetAttributes(
		attribute.String("pipeobs.status", string(metrics.Status)),
		attribute.Int("pipeobs.steps", len(metrics.Steps)),
		attribute.Int("pipeobs.errors", len(metrics.Errors)),
	)
	log := s.log(ctx)
	log.Debug().
		Int("entries", len(logs)).
		Str("status", string(metrics.Status)).
		Int("steps", len(metrics.Steps)).
		Int("errors", len(metrics.Errors)).
		Int("warnings", len(metrics.Warnings)).
		Msg("Extracted deploy metrics")

	return metrics
}

// Stages resolves the requested stages, or every canonical stage when none are given.
func (s *Service) Stages(ctx context.Context, records []types.PipelineStepRecord, stages ...types.Stage) []types.ResolvedStage {
	ctx, span := s.tracer.Start(ctx, "pipeobs.Stages",
		trace.WithAttributes(attribute.Int("pipeobs.records", len(records))))
	defer span.End()

	var resolved []types.ResolvedStage
	if len(stages) == 0 {
		resolved = resolve.ResolveAll(records)
	} else {
		resolved = resolve.ResolveStages(records, stages...)
	}

	span.SetAttributes(attribute.Int("pipeobs.stages", len(resolved)))
	log := s.log(ctx)
	log.Debug().
		Int("records", len(records)).
		Int("resolved", len(resolved)).
		Msg("Resolved pipeline stages")

	return resolved
}

// Overview resolves stages like Stages and folds them into one pipeline status.
func (s *Service) Overview(ctx context.Context, records []types.PipelineStepRecord, stages ...types.Stage) PipelineOverview {
	resolved := s.Stages(ctx, records, stages...)
	return PipelineOverview{
		Stages:  resolved,
		Overall: resolve.Overall(resolved),
	}
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	l := logger.WithTrace(ctx, logger.GetPipeObsLogger())
	return &l
}
