// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package logging

// Redact masks a secret for logging. Only the length class survives so two
// different tokens cannot be told apart from the logs.
func Redact(secret string) string {
	switch {
	case secret == "":
		return "<empty>"
	case len(secret) < 8:
		return "***"
	default:
		return "********"
	}
}
