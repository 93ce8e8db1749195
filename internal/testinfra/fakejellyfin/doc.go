// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package fakejellyfin is an in-memory Jellyfin server for tests.

It serves the subset of the API the agent uses with the same paths, status
codes and payload shapes as a real server, keeps its state in memory, and
records every request:

	srv := fakejellyfin.New(t)
	srv.SeedLibrary("Movies", "movies", "/media/movies")

	client := jellyfin.New(jellyfin.Options{BaseURL: srv.URL(), Token: fakejellyfin.DefaultToken})
	// ... run the agent ...

	if len(srv.Writes()) != 0 {
		t.Error("warm re-run wrote to the server")
	}

Failures are injected per route with Fail, the whole server can be taken
down with SetDown to exercise readiness probing, and AddAPIKey stands in for
a row written to the ApiKeys table. Installed plugins stay pending until
Restart is called, like a real server.
*/
package fakejellyfin
