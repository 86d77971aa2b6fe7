// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Patterns.CatalogPath)
}

func TestNewConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db.internal
  username: opsdash
  password: secret
  database: dashboard
server:
  port: 9000
  allowed_origins: "https://a.example.com,https://b.example.com"
  read_timeout: 5s
telemetry:
  enabled: true
  endpoint: collector:4318
  sample_ratio: 0.25
patterns:
  catalog_path: /etc/opsdash/patterns.yaml
  inert_commands: [bat, jq]
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "host=db.internal port=5432 user=opsdash password=secret dbname=dashboard sslmode=disable",
		cfg.Database.GetDSN())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset keys keep their defaults")
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
	assert.Equal(t, "/etc/opsdash/patterns.yaml", cfg.Patterns.CatalogPath)
	assert.Equal(t, []string{"bat", "jq"}, cfg.Patterns.InertCommands)
}

func TestNewConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("OPSDASH_SERVER_PORT", "9100")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestNewConfig_ExpandsPaths(t *testing.T) {
	t.Setenv("OPSDASH_TEST_DIR", "/srv/opsdash")
	path := writeConfig(t, "patterns:\n  catalog_path: $OPSDASH_TEST_DIR/patterns.yaml\n")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/opsdash/patterns.yaml", cfg.Patterns.CatalogPath)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unsupported driver", "database:\n  driver: oracle\n"},
		{"bad log level", "log:\n  level: LOUD\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"non-positive body limit", "server:\n  max_body_bytes: 0\n"},
		{"telemetry without endpoint", "telemetry:\n  enabled: true\n  endpoint: \"\"\n"},
		{"sample ratio out of range", "telemetry:\n  sample_ratio: 1.5\n"},
		{"inert command with arguments", "patterns:\n  inert_commands: [\"git log\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDSN_SQLiteMemory(t *testing.T) {
	dc := DatabaseConfig{Driver: "sqlite", Database: ":memory:"}
	assert.Equal(t, "file::memory:?cache=shared", dc.GetDSN())
}
