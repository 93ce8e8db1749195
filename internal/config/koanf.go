// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the agent config file is searched when no
// path is given. The first file found is used.
var DefaultConfigPaths = []string{
	"jellarr-agent.yaml",
	"/etc/jellarr/agent.yaml",
}

// ConfigPathEnvVar overrides the agent config file path.
const ConfigPathEnvVar = "JELLARR_AGENT_CONFIG"

// Default values shared with the CLI help text.
const (
	DefaultDatabasePath = "/var/lib/jellyfin/data/jellyfin.db"
	DefaultServiceName  = "jellyfin"
	DefaultTokenName    = "jellarr"
	DefaultManifestPath = "config.yml"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "",
			APIKey:            "",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
			Concurrency:       4,
		},
		Manifest: ManifestConfig{
			Path: DefaultManifestPath,
		},
		Bootstrap: BootstrapConfig{
			Enabled:      false,
			DatabasePath: DefaultDatabasePath,
			ServiceName:  DefaultServiceName,
			TokenName:    DefaultTokenName,
			SettleDelay:  3 * time.Second,
		},
		Readiness: ReadinessConfig{
			MaxAttempts: 30,
			Interval:    2 * time.Second,
		},
		Verify: VerifyConfig{
			Enabled:   true,
			Passwords: false,
		},
		Daemon: DaemonConfig{
			Interval:    0,
			MetricsAddr: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		DryRun:     false,
		RunTimeout: 0,
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path of the agent config file. Empty searches JELLARR_AGENT_CONFIG and
	// then DefaultConfigPaths; a missing default file is not an error.
	Path string

	// Overrides are applied last, keyed by koanf path (e.g. "daemon.interval").
	// main fills this from the flags the user actually set.
	Overrides map[string]interface{}
}

// Load builds the agent configuration from defaults, an optional YAML file,
// environment variables and explicit overrides, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, explicit := opts.Path, opts.Path != ""
	if !explicit {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("agent config file %s: %w", configPath, err)
		}
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	keys := make([]string, 0, len(opts.Overrides))
	for key := range opts.Overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := k.Set(key, opts.Overrides[key]); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak in.
var envMappings = map[string]string{
	"jellarr_base_url":            "server.base_url",
	"jellarr_api_key":             "server.api_key",
	"jellarr_request_timeout":     "server.timeout",
	"jellarr_requests_per_second": "server.requests_per_second",
	"jellarr_concurrency":         "server.concurrency",

	"jellarr_config": "manifest.path",

	"jellarr_bootstrap":              "bootstrap.enabled",
	"jellarr_bootstrap_database":     "bootstrap.database_path",
	"jellarr_bootstrap_service":      "bootstrap.service_name",
	"jellarr_bootstrap_token_name":   "bootstrap.token_name",
	"jellarr_bootstrap_settle_delay": "bootstrap.settle_delay",

	"jellarr_readiness_attempts": "readiness.max_attempts",
	"jellarr_readiness_interval": "readiness.interval",

	"jellarr_verify":           "verify.enabled",
	"jellarr_verify_passwords": "verify.passwords",

	"jellarr_interval":     "daemon.interval",
	"jellarr_metrics_addr": "daemon.metrics_addr",

	"jellarr_dry_run":     "dry_run",
	"jellarr_run_timeout": "run_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or
// "" to skip it.
//
// Examples:
//   - JELLARR_API_KEY -> server.api_key
//   - JELLARR_READINESS_ATTEMPTS -> readiness.max_attempts
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
