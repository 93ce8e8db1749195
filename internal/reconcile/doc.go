// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package reconcile moves a Jellyfin server toward a manifest.

Planning and execution are separate. Planner.Plan compares a DesiredState
with an ActualState snapshot and returns an OperationPlan without touching
the server. Reconciler.Reconcile builds the plan and executes it one domain
at a time in this order:

	system → encoding → branding → libraries → users → plugins → startup

# Rules per domain

Settings domains (system, encoding, branding) are read-modify-write: the
managed fields are set on a copy of the server record and the whole record
is posted back, so fields the manifest does not name are preserved.

Libraries are created with their full path set. An existing library only
ever gains paths. Paths on the server that the manifest does not list, and
a differing collection type, are logged and left alone.

Users are created with their password and then get their policy applied.
Existing users only get their policy rewritten; their password is never
sent again.

Plugins are installed by name. Their configuration is merged key by key
once the plugin is loaded.

# Failure isolation

Each domain ends as converged, failed or skipped. A failed domain does not
stop the next one. Within a domain, operations on different targets run
concurrently under a small limit and their errors are joined. Nothing is
retried inside a run; the next run starts from a fresh snapshot.
*/
package reconcile
