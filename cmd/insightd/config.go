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
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	// Port the gateway listens on.
	// Default: 8090
	Port int `yaml:"port"`

	// Mode is the gin mode, "debug" or "release".
	// Default: "release"
	Mode string `yaml:"mode"`

	// RateRPS is the per-client request rate.
	// Default: 10
	RateRPS float64 `yaml:"rate_rps"`

	// RateBurst is the per-client burst allowance.
	// Default: 20
	RateBurst int `yaml:"rate_burst"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	// Backend is "badger" for on-disk storage or "memory" for ephemeral.
	// Default: "badger"
	Backend string `yaml:"backend"`

	// BadgerPath is the on-disk Badger directory.
	// Default: "./data/insight"
	BadgerPath string `yaml:"badger_path"`

	// ConversionSource is "influx" or "memory". The Influx connection is
	// read from INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and
	// INFLUXDB_BUCKET.
	// Default: "memory"
	ConversionSource string `yaml:"conversion_source"`
}

// PrivacyConfig holds the differential privacy parameters.
type PrivacyConfig struct {
	// Epsilon spent per aggregation, per tenant.
	// Default: 0.1
	Epsilon float64 `yaml:"epsilon"`

	// Sensitivity of the aggregated statistic.
	// Default: 1.0
	Sensitivity float64 `yaml:"sensitivity"`

	// MinDataPoints is the minimum total sample size across the window.
	// Default: 50
	MinDataPoints int `yaml:"min_data_points"`

	// WindowDays is the default aggregation window.
	// Default: 30
	WindowDays int `yaml:"window_days"`

	// InitialBudget is each tenant's starting epsilon budget.
	// Default: 1.0
	InitialBudget float64 `yaml:"initial_budget"`

	// Reserve is the budget floor below which spends are refused.
	// Default: 0.1
	Reserve float64 `yaml:"reserve"`
}

// PredictionConfig selects the prediction backend.
type PredictionConfig struct {
	// Backend is "heuristic" or "linear". The linear backend falls back
	// to the heuristic until trained.
	// Default: "heuristic"
	Backend string `yaml:"backend"`
}

// Config is the insightd server configuration, loaded from a YAML file
// with environment overrides.
type Config struct {
	// Log level: "debug", "info", "warn" or "error".
	// Default: "info"
	Log string `yaml:"log"`

	// LogDir enables a JSON file log next to stderr when set.
	// Default: "" (stderr only)
	LogDir string `yaml:"log_dir"`

	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Privacy    PrivacyConfig    `yaml:"privacy"`
	Prediction PredictionConfig `yaml:"prediction"`
}

// DefaultServerConfig returns the default Config.
func DefaultServerConfig() *Config {
	return &Config{
		Log: "info",
		Server: ServerConfig{
			Port:      8090,
			Mode:      "release",
			RateRPS:   10,
			RateBurst: 20,
		},
		Storage: StorageConfig{
			Backend:          "badger",
			BadgerPath:       "./data/insight",
			ConversionSource: "memory",
		},
		Privacy: PrivacyConfig{
			Epsilon:       0.1,
			Sensitivity:   1.0,
			MinDataPoints: 50,
			WindowDays:    30,
			InitialBudget: 1.0,
			Reserve:       0.1,
		},
		Prediction: PredictionConfig{
			Backend: "heuristic",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies
// environment overrides. An empty path skips the file entirely.
//
// Inputs:
//
//	path - Config file path, usually from INSIGHT_CONFIG
//
// Outputs:
//
//	*Config - Validated configuration
//	error - Non-nil on unreadable file, bad YAML or invalid values
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets single values be changed without a config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INSIGHT_LOG"); v != "" {
		cfg.Log = v
	}
	if v := os.Getenv("INSIGHT_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("INSIGHT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("INSIGHT_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("INSIGHT_BADGER_PATH"); v != "" {
		cfg.Storage.BadgerPath = v
	}
	if v := os.Getenv("INSIGHT_CONVERSION_SOURCE"); v != "" {
		cfg.Storage.ConversionSource = v
	}
	if v := os.Getenv("INSIGHT_PREDICTION_BACKEND"); v != "" {
		cfg.Prediction.Backend = v
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateRPS <= 0 {
		return fmt.Errorf("server.rate_rps must be positive, got %v", c.Server.RateRPS)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1, got %d", c.Server.RateBurst)
	}
	switch c.Storage.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("storage.backend %q is not badger or memory", c.Storage.Backend)
	}
	switch c.Storage.ConversionSource {
	case "influx", "memory":
	default:
		return fmt.Errorf("storage.conversion_source %q is not influx or memory", c.Storage.ConversionSource)
	}
	switch c.Prediction.Backend {
	case "heuristic", "linear":
	default:
		return fmt.Errorf("prediction.backend %q is not heuristic or linear", c.Prediction.Backend)
	}
	if c.Privacy.Epsilon <= 0 {
		return fmt.Errorf("privacy.epsilon must be positive, got %v", c.Privacy.Epsilon)
	}
	if c.Privacy.InitialBudget <= c.Privacy.Reserve {
		return fmt.Errorf("privacy.initial_budget %v must exceed reserve %v",
			c.Privacy.InitialBudget, c.Privacy.Reserve)
	}
	return nil
}

// LogLevel maps the configured log string to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
