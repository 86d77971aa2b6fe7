// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noldarim/opsdash/internal/config"
)

// useFreshDatabase creates a migrated SQLite database in a temporary directory
func useFreshDatabase(t *testing.T) *GormStore {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "opsdash-test.db"),
	}

	s, err := Open(cfg)
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.AutoMigrate(), "Failed to run migrations on test database")
	return s
}
