// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package bootstrap creates the API key the agent needs before the API can be
used.

A fresh Jellyfin has no API key, and the API offers no way to create one
without already being authenticated. The key is therefore written directly
into the server's SQLite database while the server is stopped:

  - SQLiteTokenStore inserts into ApiKeys with INSERT OR IGNORE, so a rerun
    after a partial bootstrap neither fails nor duplicates the row
  - SystemServiceController stops and starts the server through the host's
    service manager (kardianos/service; systemd on Linux)

Before touching anything, EnsureCredential checks whether the key already
authenticates; if it does the server is not restarted.

The procedure assumes no other actor is configuring the server while it
runs.
*/
package bootstrap
