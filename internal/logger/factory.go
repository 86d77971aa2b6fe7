// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Static logger getters that map directly to config.yaml log.levels
// These ensure consistent logger names across the codebase

// GetPipeObsLogger returns a logger for the pipeline observability service
func GetPipeObsLogger() zerolog.Logger {
	return GetLogger("pipeobs")
}

// GetStoreLogger returns a logger for snapshot store operations
func GetStoreLogger() zerolog.Logger {
	return GetLogger("store")
}

// GetAPILogger returns a logger for API operations
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetCLILogger returns a logger for the command line client
func GetCLILogger() zerolog.Logger {
	return GetLogger("cli")
}

// WithTrace returns l annotated with the trace and span IDs of the span in ctx, if any.
func WithTrace(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
