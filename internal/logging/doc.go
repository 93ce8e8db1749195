// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package logging provides the zerolog-based structured logger used by every
// jellarr component.
//
// A single global logger is configured once from main via Init and is then
// reached through the level helpers (Info, Warn, Error, ...). Each
// reconciliation run carries a run id in its context; Ctx(ctx) returns a
// logger that stamps that id onto every event so the lines of one run can be
// grouped after the fact.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//
//	ctx = logging.ContextWithNewRunID(ctx)
//	logging.Ctx(ctx).Info().Str("domain", "users").Msg("reconciling")
//
// # Configuration
//
// Environment Variables (read through internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: console for the CLI)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Secrets
//
// API tokens and user passwords must never reach a log line. Use Redact for
// anything that might carry a secret:
//
//	logging.Debug().Str("token", logging.Redact(token)).Msg("using token")
//
// # suture integration
//
// The daemon supervisor tree logs through sutureslog, which requires a
// *slog.Logger. NewSlogLogger returns one backed by the global zerolog logger.
package logging
