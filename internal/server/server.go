// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// SnapshotSource serves the stored log and step-record snapshots per service.
// Implementations return an error wrapping store.ErrNotFound for unknown services.
type SnapshotSource interface {
	LogEntries(ctx context.Context, serviceID string) ([]types.LogEntry, error)
	StepRecords(ctx context.Context, serviceID string) ([]types.PipelineStepRecord, error)
	Services(ctx context.Context) ([]string, error)
}

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
}

// New creates and wires up the API server. It does NOT start listening,
// call Run() for that.
func New(cfg *config.ServerConfig, svc *pipeobs.Service, snapshots SnapshotSource) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           NewRouter(cfg, svc, snapshots),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewRouter builds the HTTP handler tree. snapshots may be nil, in which case the
// service-scoped routes are not mounted.
func NewRouter(cfg *config.ServerConfig, svc *pipeobs.Service, snapshots SnapshotSource) http.Handler {
	handlers := NewHandlers(svc, snapshots)

	r := chi.NewRouter()

	// Global middleware
	r.Use(Recovery)
	r.Use(RequestID)
	r.Use(Tracing)
	r.Use(Logger)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(MaxBodySize(cfg.MaxBodyBytes))

	r.Get("/healthz", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/deploy/metrics", handlers.DeployMetrics)
		r.Post("/pipeline/stages", handlers.PipelineStages)
		r.Get("/patterns", handlers.GetPatterns)

		if snapshots != nil {
			r.Get("/services", handlers.GetServices)
			r.Route("/services/{id}", func(r chi.Router) {
				r.Get("/deploy-metrics", handlers.GetServiceDeployMetrics)
				r.Get("/stages", handlers.GetServiceStages)
			})
		}
	})

	return r
}

// Run starts the HTTP server. Request contexts derive from ctx.
// Blocks until the server is shut down.
func (s *Server) Run(ctx context.Context) error {
	getLog().Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
