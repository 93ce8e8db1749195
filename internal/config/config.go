// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package config

import "time"

// Config holds the agent's own runtime configuration. It is distinct from the
// manifest, which describes the desired state of the Jellyfin server.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML agent config
//  3. Environment Variables: JELLARR_* and LOG_*
//  4. Overrides: command-line flags passed by main
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Manifest  ManifestConfig  `koanf:"manifest"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Readiness ReadinessConfig `koanf:"readiness"`
	Verify    VerifyConfig    `koanf:"verify"`
	Daemon    DaemonConfig    `koanf:"daemon"`
	Logging   LoggingConfig   `koanf:"logging"`

	// DryRun plans every domain and reports the operations without
	// executing any write.
	DryRun bool `koanf:"dry_run"`

	// RunTimeout bounds a whole run. Zero derives it from the readiness
	// budget plus the API timeout (see EffectiveRunTimeout).
	RunTimeout time.Duration `koanf:"run_timeout" validate:"gte=0"`
}

// ServerConfig describes how to reach the Jellyfin server.
type ServerConfig struct {
	// BaseURL overrides the manifest's base_url when set.
	BaseURL string `koanf:"base_url" validate:"omitempty,httpurl"`

	// APIKey is the token sent on every authenticated call. When bootstrap
	// is enabled it is also the value inserted into the ApiKeys table.
	APIKey string `koanf:"api_key" validate:"required"`

	// Timeout is the per-request transport timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond paces calls to the server. Zero disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`

	// Concurrency bounds parallel creates inside one domain.
	Concurrency int `koanf:"concurrency" validate:"gte=1,lte=16"`
}

// ManifestConfig locates the desired-state manifest.
type ManifestConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// BootstrapConfig controls the out-of-band API key insert.
type BootstrapConfig struct {
	Enabled bool `koanf:"enabled"`

	// DatabasePath is Jellyfin's SQLite database.
	DatabasePath string `koanf:"database_path" validate:"omitempty,abspath"`

	// ServiceName is the system service that runs Jellyfin.
	ServiceName string `koanf:"service_name"`

	// TokenName is the display name stored with the key.
	TokenName string `koanf:"token_name"`

	// SettleDelay is waited after stopping the service so SQLite locks are released.
	SettleDelay time.Duration `koanf:"settle_delay" validate:"gte=0"`
}

// ReadinessConfig is the probe budget used for both liveness levels.
type ReadinessConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	Interval    time.Duration `koanf:"interval" validate:"gt=0"`
}

// VerifyConfig controls the post-run compliance check.
type VerifyConfig struct {
	Enabled bool `koanf:"enabled"`

	// Passwords authenticates each declared user. Off by default since a
	// failed login counts toward the user's lockout.
	Passwords bool `koanf:"passwords"`
}

// DaemonConfig turns the one-shot agent into a periodic reconciler.
type DaemonConfig struct {
	// Interval between runs. Zero means run once and exit.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// MetricsAddr is the listen address for /metrics, /healthz and /report
	// in daemon mode. Empty disables the HTTP listener.
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`

	// CORSOrigins may read the status endpoints from a browser.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,httpurl"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// EffectiveRunTimeout returns RunTimeout, or when unset three readiness
// budgets (process wait, then process and auth waits after a bootstrap
// restart) plus the settle delay and an allowance for API calls.
func (c *Config) EffectiveRunTimeout() time.Duration {
	if c.RunTimeout > 0 {
		return c.RunTimeout
	}
	probe := time.Duration(c.Readiness.MaxAttempts) * c.Readiness.Interval
	return 3*probe + c.Bootstrap.SettleDelay + 20*c.Server.Timeout
}

// IsDaemon reports whether the agent should keep running between reconciles.
func (c *Config) IsDaemon() bool {
	return c.Daemon.Interval > 0
}
