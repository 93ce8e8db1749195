// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

// isolateEnv points the config search at an empty directory and sets the
// only required variable.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JELLARR_API_KEY", testAPIKey)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Readiness.MaxAttempts != 30 {
		t.Errorf("Readiness.MaxAttempts = %d, want 30", cfg.Readiness.MaxAttempts)
	}
	if cfg.Readiness.Interval != 2*time.Second {
		t.Errorf("Readiness.Interval = %v, want 2s", cfg.Readiness.Interval)
	}
	if cfg.Bootstrap.Enabled {
		t.Error("Bootstrap.Enabled should be false by default")
	}
	if cfg.Bootstrap.DatabasePath != "/var/lib/jellyfin/data/jellyfin.db" {
		t.Errorf("Bootstrap.DatabasePath = %q", cfg.Bootstrap.DatabasePath)
	}
	if cfg.Bootstrap.ServiceName != "jellyfin" {
		t.Errorf("Bootstrap.ServiceName = %q, want jellyfin", cfg.Bootstrap.ServiceName)
	}
	if cfg.Bootstrap.SettleDelay != 3*time.Second {
		t.Errorf("Bootstrap.SettleDelay = %v, want 3s", cfg.Bootstrap.SettleDelay)
	}
	if !cfg.Verify.Enabled || cfg.Verify.Passwords {
		t.Errorf("Verify = %+v, want enabled without passwords", cfg.Verify)
	}
	if cfg.IsDaemon() {
		t.Error("default config should be one-shot")
	}
}

func TestLoad_DefaultsWithAPIKey(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.APIKey != testAPIKey {
		t.Errorf("Server.APIKey = %q", cfg.Server.APIKey)
	}
	if cfg.Manifest.Path != DefaultManifestPath {
		t.Errorf("Manifest.Path = %q, want %q", cfg.Manifest.Path, DefaultManifestPath)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JELLARR_API_KEY", "")

	_, err := Load(LoadOptions{})
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "api_key is required") {
		t.Errorf("expected api_key message, got %v", err)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	isolateEnv(t)

	path := writeFile(t, "agent.yaml", `
server:
  base_url: http://file-host:8096
  timeout: 10s
readiness:
  max_attempts: 5
  interval: 500ms
logging:
  level: debug
`)
	t.Setenv("JELLARR_READINESS_ATTEMPTS", "7")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(LoadOptions{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "http://file-host:8096" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 10*time.Second {
		t.Errorf("Server.Timeout = %v, want 10s", cfg.Server.Timeout)
	}
	if cfg.Readiness.MaxAttempts != 7 {
		t.Errorf("env should override file: MaxAttempts = %d, want 7", cfg.Readiness.MaxAttempts)
	}
	if cfg.Readiness.Interval != 500*time.Millisecond {
		t.Errorf("Readiness.Interval = %v, want 500ms", cfg.Readiness.Interval)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_OverridesWin(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JELLARR_INTERVAL", "1m")

	cfg, err := Load(LoadOptions{Overrides: map[string]interface{}{
		"daemon.interval": 5 * time.Minute,
		"manifest.path":   "/etc/jellarr/config.yml",
	}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.Interval != 5*time.Minute {
		t.Errorf("Daemon.Interval = %v, want 5m", cfg.Daemon.Interval)
	}
	if cfg.Manifest.Path != "/etc/jellarr/config.yml" {
		t.Errorf("Manifest.Path = %q", cfg.Manifest.Path)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_UnmappedEnvIgnored(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SERVER_TIMEOUT", "1ns")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("unmapped env leaked into config: %v", cfg.Server.Timeout)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JELLARR_API_KEY":            "server.api_key",
		"JELLARR_CONFIG":             "manifest.path",
		"JELLARR_BOOTSTRAP":          "bootstrap.enabled",
		"JELLARR_READINESS_INTERVAL": "readiness.interval",
		"LOG_LEVEL":                  "logging.level",
		"HOME":                       "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
