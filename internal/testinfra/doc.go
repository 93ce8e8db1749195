// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package testinfra provides test infrastructure for integration testing
// against a real Jellyfin server in a container.
//
// The helpers use testcontainers-go and are built only with the integration
// tag:
//
//	go test -tags integration ./...
//
// # Jellyfin Container
//
// NewJellyfinContainer starts the official image, walks the first-run
// wizard far enough to create an administrator, and returns an access token
// the agent can use:
//
//	func TestAgainstJellyfin(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    jf, err := testinfra.NewJellyfinContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.CleanupContainer(t, jf.Container)
//
//	    client := jellyfin.New(jellyfin.Options{BaseURL: jf.URL, Token: jf.Token})
//	    // ...
//	}
//
// The wizard itself is left incomplete so that the startup domain has work
// to do.
//
// Unit tests that do not need a real server use the in-memory server in
// the fakejellyfin subpackage instead.
//
// # Network Requirements
//
// First run may need to download container images. Subsequent runs use cached images.
package testinfra
