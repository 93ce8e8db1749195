// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package services adapts daemon components to suture's Serve(ctx) error
contract.

ReconcileService calls the agent once at startup and then on every
interval tick. Run failures are logged and do not end the service.

HTTPServerService runs the /metrics, /healthz and /report listener and
shuts it down gracefully when the supervisor stops.
*/
package services
