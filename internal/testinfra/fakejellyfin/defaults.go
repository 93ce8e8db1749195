// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package fakejellyfin

import "github.com/venkyr77/jellarr/internal/jellyfin"

// Default records hold a representative slice of a fresh 10.10 server, so
// tests can check that keys the agent does not manage survive a write.

func defaultSystemConfiguration() jellyfin.Record {
	return jellyfin.Record{
		"ServerName":                    "fake-jellyfin",
		"UICulture":                     "en-US",
		"EnableMetrics":                 false,
		"EnableNormalizedItemByNameIds": true,
		"LibraryScanFanoutConcurrency":  0,
		"ActivityLogRetentionDays":      30,
		"PluginRepositories": []interface{}{
			map[string]interface{}{
				"Name":    "Jellyfin Stable",
				"Url":     "https://repo.jellyfin.org/files/plugin/manifest.json",
				"Enabled": true,
			},
		},
		"TrickplayOptions": map[string]interface{}{
			"EnableHwAcceleration": false,
			"EnableHwEncoding":     false,
			"Interval":             10000,
			"WidthResolutions":     []interface{}{320},
		},
	}
}

func defaultEncoding() jellyfin.Record {
	return jellyfin.Record{
		"EncodingThreadCount":                -1,
		"TranscodingTempPath":                "/cache/transcodes",
		"EnableHardwareEncoding":             true,
		"HardwareAccelerationType":           "none",
		"VaapiDevice":                        "/dev/dri/renderD128",
		"QsvDevice":                          "",
		"HardwareDecodingCodecs":             []interface{}{"h264", "vc1"},
		"EnableDecodingColorDepth10Hevc":     true,
		"EnableDecodingColorDepth10Vp9":      true,
		"EnableDecodingColorDepth10HevcRext": false,
		"EnableDecodingColorDepth12HevcRext": false,
		"AllowHevcEncoding":                  false,
		"AllowAv1Encoding":                   false,
		"EncoderPreset":                      "auto",
	}
}

func defaultBranding() jellyfin.Record {
	return jellyfin.Record{
		"LoginDisclaimer":     "",
		"CustomCss":           "",
		"SplashscreenEnabled": false,
	}
}

func defaultPolicy() jellyfin.Record {
	return jellyfin.Record{
		"IsAdministrator":            false,
		"IsHidden":                   true,
		"IsDisabled":                 false,
		"EnableAllFolders":           true,
		"EnableRemoteAccess":         true,
		"LoginAttemptsBeforeLockout": -1,
		"AuthenticationProviderId":   "Jellyfin.Server.Implementations.Users.DefaultAuthenticationProvider",
		"PasswordResetProviderId":    "Jellyfin.Server.Implementations.Users.DefaultPasswordResetProvider",
	}
}
