// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package config

import (
	"errors"
	"fmt"

	"github.com/venkyr77/jellarr/internal/validation"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid agent configuration")

// Validate checks struct-level rules and the cross-field constraints that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.validateBootstrap(); err != nil {
		return err
	}
	return c.validateDaemon()
}

func (c *Config) validateBootstrap() error {
	if !c.Bootstrap.Enabled {
		return nil
	}
	if c.Bootstrap.DatabasePath == "" {
		return fmt.Errorf("%w: bootstrap.database_path is required when bootstrap is enabled", ErrInvalidConfig)
	}
	if c.Bootstrap.ServiceName == "" {
		return fmt.Errorf("%w: bootstrap.service_name is required when bootstrap is enabled", ErrInvalidConfig)
	}
	if c.Bootstrap.TokenName == "" {
		return fmt.Errorf("%w: bootstrap.token_name is required when bootstrap is enabled", ErrInvalidConfig)
	}
	if len(c.Server.APIKey) < 16 {
		return fmt.Errorf("%w: server.api_key must be at least 16 characters when it is bootstrapped", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.MetricsAddr != "" && !c.IsDaemon() {
		return fmt.Errorf("%w: daemon.metrics_addr requires daemon.interval > 0", ErrInvalidConfig)
	}
	if c.IsDaemon() && c.DryRun {
		return fmt.Errorf("%w: dry_run cannot be combined with daemon mode", ErrInvalidConfig)
	}
	return nil
}
