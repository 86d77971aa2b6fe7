// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
	"github.com/noldarim/opsdash/test/testutil"
)

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{Host: "127.0.0.1", Port: 0, MaxBodyBytes: 1 << 20}
}

func newTestRouter(t *testing.T) (http.Handler, *testutil.MemorySnapshots) {
	t.Helper()
	snapshots := testutil.NewMemorySnapshots()
	snapshots.AddLogs("shop-web", testutil.KubernetesDeployment()...)
	snapshots.AddRecords("shop-web", testutil.DeployedPipeline()...)
	snapshots.AddRecords("billing", testutil.BuildHistory()...)
	return NewRouter(testServerConfig(), pipeobs.NewService(), snapshots), snapshots
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestDeployMetrics(t *testing.T) {
	h, _ := newTestRouter(t)

	t.Run("derives metrics from posted logs", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/deploy/metrics",
			DeployMetricsRequest{Logs: testutil.KubernetesDeployment()})
		require.Equal(t, http.StatusOK, rec.Code)

		m := decode[types.DeployMetrics](t, rec)
		assert.Equal(t, types.MetricsStatusSuccess, m.Status)
		require.NotNil(t, m.Namespace)
		assert.Equal(t, "shop", *m.Namespace)
		testutil.AssertUniqueSteps(t, m.Steps)
	})

	t.Run("empty logs are pending", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/deploy/metrics", `{"logs":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		m := decode[types.DeployMetrics](t, rec)
		assert.Equal(t, types.MetricsStatusPending, m.Status)
		assert.Empty(t, m.Steps)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/deploy/metrics", `{"logs":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "Invalid JSON body", body["error"])
		assert.NotEmpty(t, body["context"])
	})
}

func TestDeployMetrics_BodyTooLarge(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 16
	h := NewRouter(cfg, pipeobs.NewService(), nil)

	rec := do(t, h, http.MethodPost, "/api/v1/deploy/metrics",
		DeployMetricsRequest{Logs: testutil.ComposeDeployment()})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPipelineStages(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name       string
		records    []types.PipelineStepRecord
		stages     []string
		wantCode   int
		wantStages []types.Stage
		wantStatus types.StatusCategory
	}{
		{
			name:       "all stages",
			records:    testutil.DeployedPipeline(),
			wantCode:   http.StatusOK,
			wantStages: types.CanonicalStages,
			wantStatus: types.CategorySuccess,
		},
		{
			name:       "aliases select stages",
			records:    testutil.BuildHistory(),
			stages:     []string{"ci"},
			wantCode:   http.StatusOK,
			wantStages: []types.Stage{types.StageBuild},
			wantStatus: types.CategoryRunning,
		},
		{
			name:       "stage without evidence is omitted",
			records:    testutil.BuildHistory(),
			stages:     []string{"deploy"},
			wantCode:   http.StatusOK,
			wantStages: []types.Stage{},
			wantStatus: types.CategoryInactive,
		},
		{
			name:     "unknown stage",
			records:  testutil.BuildHistory(),
			stages:   []string{"lunch"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/pipeline/stages",
				PipelineStagesRequest{Records: tt.records, Stages: tt.stages})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			overview := decode[pipeobs.PipelineOverview](t, rec)
			got := make([]types.Stage, 0, len(overview.Stages))
			for _, s := range overview.Stages {
				got = append(got, s.Stage)
			}
			assert.Equal(t, tt.wantStages, got)
			assert.Equal(t, tt.wantStatus, overview.Overall)
		})
	}
}

func TestGetPatterns(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/patterns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[PatternsResponse](t, rec)
	require.Len(t, resp.Rules, len(patterns.Default().Rules()))
	assert.Equal(t, patterns.RuleManifestDump, resp.Rules[0].Name)
	assert.Contains(t, resp.InertCommands, "cat")

	var apply RuleView
	for _, r := range resp.Rules {
		if r.Name == patterns.RuleManifestApply {
			apply = r
		}
	}
	assert.Equal(t, patterns.KindManifestApply, apply.Kind)
}

func TestServices(t *testing.T) {
	h, snapshots := newTestRouter(t)

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/services", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"billing", "shop-web"}, decode[ServicesResponse](t, rec).Services)
	})

	t.Run("deploy metrics", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/services/shop-web/deploy-metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		m := decode[types.DeployMetrics](t, rec)
		assert.Equal(t, types.MetricsStatusSuccess, m.Status)
		require.Len(t, m.Images, 1)
	})

	t.Run("stages", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/services/shop-web/stages", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		overview := decode[pipeobs.PipelineOverview](t, rec)
		require.Len(t, overview.Stages, 4)
		assert.True(t, overview.Stages[3].Synthesized)
		assert.Equal(t, types.CategorySuccess, overview.Overall)
	})

	t.Run("stages filtered by query", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/services/billing/stages?stage=build", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		overview := decode[pipeobs.PipelineOverview](t, rec)
		require.Len(t, overview.Stages, 1)
		assert.Equal(t, int64(2), overview.Stages[0].Record.ID)
	})

	t.Run("bad stage query", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/services/billing/stages?stage=nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown service", func(t *testing.T) {
		for _, path := range []string{
			"/api/v1/services/ghost/deploy-metrics",
			"/api/v1/services/ghost/stages",
			"/api/v1/services/billing/deploy-metrics",
		} {
			rec := do(t, h, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		snapshots.Err = errors.New("connection refused")
		defer func() { snapshots.Err = nil }()

		rec := do(t, h, http.MethodGet, "/api/v1/services", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "connection refused", decode[map[string]string](t, rec)["context"])
	})
}

func TestServiceRoutes_NotMountedWithoutStore(t *testing.T) {
	h := NewRouter(testServerConfig(), pipeobs.NewService(), nil)
	rec := do(t, h, http.MethodGet, "/api/v1/services", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when missing", "", false},
		{"valid id is kept", "deploy-42_a", true},
		{"invalid id is replaced", "bad id\nwith newline", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			require.NotEmpty(t, got)
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
				assert.Regexp(t, validRequestID, got)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"open when unconfigured", nil, "http://dash.local", "*"},
		{"listed origin reflected", []string{"http://dash.local"}, "http://dash.local", "http://dash.local"},
		{"other origin refused", []string{"http://dash.local"}, "http://evil.local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			cfg.AllowedOrigins = tt.allowed
			h := NewRouter(cfg, pipeobs.NewService(), nil)

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/patterns", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/shop-web/stages", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var server sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if strings.HasPrefix(s.Name(), "GET ") {
			server = s
		}
	}
	require.NotNil(t, server)
	assert.Equal(t, "GET /api/v1/services/{id}/stages", server.Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", server.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", server.Parent().SpanID().String())
}
