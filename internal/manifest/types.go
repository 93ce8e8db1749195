// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package manifest

import "github.com/venkyr77/jellarr/internal/logging"

// DesiredState is a loaded and validated manifest. It is not modified after
// Load returns. A nil settings pointer, or a nil field inside one, means the
// manifest does not manage it and the server value is left alone.
type DesiredState struct {
	Version   int
	BaseURL   string
	System    *SystemSettings
	Encoding  *EncodingSettings
	Branding  *BrandingSettings
	Libraries []LibraryDef
	Users     []UserDef
	Plugins   []PluginDef
	Startup   *StartupSettings
}

// SystemSettings are merged onto /System/Configuration.
type SystemSettings struct {
	EnableMetrics *bool `yaml:"enableMetrics"`

	// PluginRepositories replaces the server list when non-nil. Order is
	// not significant.
	PluginRepositories []PluginRepository `yaml:"pluginRepositories" validate:"omitempty,dive"`

	TrickplayOptions *TrickplayOptions `yaml:"trickplayOptions"`
}

// PluginRepository is one plugin catalog.
type PluginRepository struct {
	Name    string `yaml:"name" validate:"required"`
	URL     string `yaml:"url" validate:"required,url"`
	Enabled *bool  `yaml:"enabled" validate:"required"`
}

// TrickplayOptions are merged onto the server's TrickplayOptions record.
type TrickplayOptions struct {
	EnableHwAcceleration *bool `yaml:"enableHwAcceleration"`
	EnableHwEncoding     *bool `yaml:"enableHwEncoding"`
}

// EncodingSettings are merged onto /System/Configuration/encoding.
type EncodingSettings struct {
	EnableHardwareEncoding   *bool   `yaml:"enableHardwareEncoding"`
	HardwareAccelerationType *string `yaml:"hardwareAccelerationType" validate:"omitempty,oneof=none amf qsv nvenc v4l2m2m vaapi videotoolbox rkmpp"`
	VaapiDevice              *string `yaml:"vaapiDevice" validate:"omitempty,abspath"`
	QsvDevice                *string `yaml:"qsvDevice"`

	// HardwareDecodingCodecs is a set; duplicates are dropped at load.
	HardwareDecodingCodecs []string `yaml:"hardwareDecodingCodecs" validate:"omitempty,dive,oneof=h264 hevc mpeg2video vc1 vp8 vp9 av1"`

	EnableDecodingColorDepth10Hevc     *bool `yaml:"enableDecodingColorDepth10Hevc"`
	EnableDecodingColorDepth10Vp9      *bool `yaml:"enableDecodingColorDepth10Vp9"`
	EnableDecodingColorDepth10HevcRext *bool `yaml:"enableDecodingColorDepth10HevcRext"`
	EnableDecodingColorDepth12HevcRext *bool `yaml:"enableDecodingColorDepth12HevcRext"`
	AllowHevcEncoding                  *bool `yaml:"allowHevcEncoding"`
	AllowAv1Encoding                   *bool `yaml:"allowAv1Encoding"`
}

// BrandingSettings are merged onto /System/Configuration/branding.
type BrandingSettings struct {
	LoginDisclaimer     *string `yaml:"loginDisclaimer"`
	CustomCss           *string `yaml:"customCss"`
	SplashscreenEnabled *bool   `yaml:"splashscreenEnabled"`
}

// LibraryDef is one library, identified by Name. Paths is a set.
type LibraryDef struct {
	Name           string
	CollectionType string
	Paths          []string
}

// UserDef is one user, identified by Name. Password is only used when the
// user is created.
type UserDef struct {
	Name         string
	Password     string
	PasswordFile string
	Policy       *UserPolicy
}

// String never reveals the password.
func (u UserDef) String() string {
	return "UserDef{Name:" + u.Name + ", Password:" + logging.Redact(u.Password) + "}"
}

// UserPolicy holds the managed policy fields.
type UserPolicy struct {
	IsAdministrator            *bool `yaml:"isAdministrator"`
	LoginAttemptsBeforeLockout *int  `yaml:"loginAttemptsBeforeLockout" validate:"omitempty,gt=0"`
}

// PluginDef is one plugin, identified by Name. Configuration is merged onto
// the plugin's configuration record; keys it does not name are kept.
type PluginDef struct {
	Name          string                 `yaml:"name" validate:"required"`
	Configuration map[string]interface{} `yaml:"configuration"`
}

// StartupSettings controls the first-run wizard.
type StartupSettings struct {
	CompleteStartupWizard *bool `yaml:"completeStartupWizard"`
}
