// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the agent configuration and the
// manifest loader. Error paths are reported using yaml (or koanf) key names so
// that a failure points at the exact location in the file the operator wrote:
//
//	users[1].policy.loginAttemptsBeforeLockout must be greater than 0
//
// # Custom rules
//
//   - httpurl: absolute http/https URL with a host, no query string
//   - abspath: absolute filesystem path
//
// # Usage
//
//	type LibraryDef struct {
//	    Name  string   `yaml:"name" validate:"required"`
//	    Paths []string `yaml:"paths" validate:"min=1,dive,abspath"`
//	}
//
//	if err := validation.ValidateStruct(&lib); err != nil {
//	    return fmt.Errorf("invalid manifest: %w", err)
//	}
package validation
