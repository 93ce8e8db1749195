// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package manifest loads the desired-state document.

Example:

	version: 1
	base_url: "http://localhost:8096"
	system:
	  enableMetrics: true
	  pluginRepositories:
	    - name: "Jellyfin Official"
	      url: "https://repo.jellyfin.org/releases/plugin/manifest.json"
	      enabled: true
	encoding:
	  hardwareAccelerationType: vaapi
	  vaapiDevice: /dev/dri/renderD128
	  hardwareDecodingCodecs: [h264, hevc]
	library:
	  virtualFolders:
	    - name: Movies
	      collectionType: movies
	      libraryOptions:
	        pathInfos:
	          - path: /mnt/movies/English
	users:
	  - name: alice
	    passwordFile: /run/secrets/alice
	    policy:
	      isAdministrator: true
	      loginAttemptsBeforeLockout: 3
	startup:
	  completeStartupWizard: true

Decoding is strict: unknown keys fail the load. Names must be unique within
libraries, users and plugins; a repeated name is rejected rather than
resolved. Each user sets exactly one of password or passwordFile; files are
read and trimmed at load time.

Every error returned by Load or Parse wraps ErrInvalidManifest.
*/
package manifest
