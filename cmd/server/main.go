// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/logger"
	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/server"
	"github.com/noldarim/opsdash/internal/store"
	"github.com/noldarim/opsdash/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml, /etc/opsdash, ~/.opsdash)")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting opsdash API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error setting up tracing")
		fmt.Fprintf(os.Stderr, "Error setting up tracing: %v\n", err)
		os.Exit(1)
	}

	catalog, err := patterns.Load(cfg.Patterns.CatalogPath, cfg.Patterns.InertCommands)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error loading pattern catalog")
		fmt.Fprintf(os.Stderr, "Error loading pattern catalog: %v\n", err)
		os.Exit(1)
	}
	mainLog.Info().
		Str("catalog", cfg.Patterns.CatalogPath).
		Int("rules", len(catalog.Rules())).
		Msg("Pattern catalog loaded")

	db, err := store.Open(&cfg.Database)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error opening database")
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		mainLog.Error().Err(err).Msg("Error migrating database")
		fmt.Fprintf(os.Stderr, "Error migrating database: %v\n", err)
		os.Exit(1)
	}

	svc := pipeobs.NewService(pipeobs.WithCatalog(catalog))
	srv := server.New(&cfg.Server, svc, db)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(ctx)
	}()

	// Wait for signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	// Fresh context: ctx is about to be cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}
	cancel()

	if err := shutdownTracing(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error flushing traces")
	}

	mainLog.Info().Msg("API server shut down")
}
