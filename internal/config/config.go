/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config covers process level configuration. Values come from an
// optional YAML file (CARBON_CONFIG_FILE) overridden by environment
// variables; entity-level settings (panel size, schedule windows) live
// in the persisted Settings store, not here.
type Config struct {
	Environment string `yaml:"environment"`
	HTTPBind    string `yaml:"http_bind"`
	HTTPPort    int    `yaml:"http_port"`

	// DataDir holds the JSON stores and the history database.
	DataDir string `yaml:"data_dir"`

	// RenderBaseURL is the origin the frame producer navigates to.
	// Empty means the process's own listener.
	RenderBaseURL string `yaml:"render_base_url"`

	// CaptureTimeoutSeconds bounds one headless-browser capture.
	CaptureTimeoutSeconds int `yaml:"capture_timeout_seconds"`

	// CaptureMaxAgeSeconds is the frame cache freshness threshold.
	CaptureMaxAgeSeconds int `yaml:"capture_max_age_seconds"`
}

// Load reads the optional config file, applies environment overrides and
// defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:           "development",
		HTTPBind:              "0.0.0.0",
		HTTPPort:              8080,
		DataDir:               "./data",
		CaptureTimeoutSeconds: 30,
		CaptureMaxAgeSeconds:  15,
	}

	if path := os.Getenv("CARBON_CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Environment = getEnv("CARBON_ENV", cfg.Environment)
	cfg.HTTPBind = getEnv("CARBON_HTTP_BIND", cfg.HTTPBind)
	cfg.HTTPPort = getEnvInt("CARBON_HTTP_PORT", cfg.HTTPPort)
	cfg.DataDir = getEnv("CARBON_DATA_DIR", cfg.DataDir)
	cfg.RenderBaseURL = getEnv("CARBON_RENDER_BASE_URL", cfg.RenderBaseURL)
	cfg.CaptureTimeoutSeconds = getEnvInt("CARBON_CAPTURE_TIMEOUT_SECONDS", cfg.CaptureTimeoutSeconds)
	cfg.CaptureMaxAgeSeconds = getEnvInt("CARBON_CAPTURE_MAX_AGE_SECONDS", cfg.CaptureMaxAgeSeconds)

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid CARBON_HTTP_PORT %d", cfg.HTTPPort)
	}
	if cfg.CaptureTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("CARBON_CAPTURE_TIMEOUT_SECONDS must be positive")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("CARBON_DATA_DIR must not be empty")
	}
	if cfg.RenderBaseURL != "" && !strings.HasPrefix(cfg.RenderBaseURL, "http") {
		return nil, fmt.Errorf("CARBON_RENDER_BASE_URL %q must be an http(s) origin", cfg.RenderBaseURL)
	}

	return cfg, nil
}

// CaptureTimeout returns the capture bound as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSeconds) * time.Second
}

// CaptureMaxAge returns the frame cache freshness threshold.
func (c *Config) CaptureMaxAge() time.Duration {
	return time.Duration(c.CaptureMaxAgeSeconds) * time.Second
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
