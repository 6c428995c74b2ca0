// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "heuristic", cfg.Prediction.Backend)
	assert.Equal(t, 0.1, cfg.Privacy.Epsilon)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log: debug
server:
  port: 9000
  rate_rps: 5
privacy:
  epsilon: 0.2
prediction:
  backend: linear
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Server.RateRPS)
	assert.Equal(t, 0.2, cfg.Privacy.Epsilon)
	assert.Equal(t, "linear", cfg.Prediction.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	// Fields the file leaves out keep their defaults.
	assert.Equal(t, 50, cfg.Privacy.MinDataPoints)
	assert.Equal(t, 20, cfg.Server.RateBurst)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("INSIGHT_PORT", "7070")
	t.Setenv("INSIGHT_STORAGE_BACKEND", "memory")
	t.Setenv("INSIGHT_LOG", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad backend", "storage:\n  backend: postgres\n"},
		{"bad prediction", "prediction:\n  backend: quantum\n"},
		{"zero epsilon", "privacy:\n  epsilon: 0\n"},
		{"budget below reserve", "privacy:\n  initial_budget: 0.05\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
