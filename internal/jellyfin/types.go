// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

// Configuration sections served under /System/Configuration/{key}.
const (
	SectionEncoding = "encoding"
	SectionBranding = "branding"
)

// PublicSystemInfo is the unauthenticated /System/Info/Public payload.
type PublicSystemInfo struct {
	ID                     string `json:"Id"`
	ServerName             string `json:"ServerName"`
	Version                string `json:"Version"`
	ProductName            string `json:"ProductName"`
	LocalAddress           string `json:"LocalAddress"`
	StartupWizardCompleted bool   `json:"StartupWizardCompleted"`
}

// MediaPathInfo is one entry of LibraryOptions.PathInfos.
type MediaPathInfo struct {
	Path string `json:"Path"`
}

// LibraryOptions is the subset of library options the agent writes.
type LibraryOptions struct {
	PathInfos []MediaPathInfo `json:"PathInfos"`
}

// VirtualFolder is one entry of GET /Library/VirtualFolders.
type VirtualFolder struct {
	Name           string          `json:"Name"`
	CollectionType string          `json:"CollectionType"`
	ItemID         string          `json:"ItemId"`
	Locations      []string        `json:"Locations"`
	LibraryOptions *LibraryOptions `json:"LibraryOptions,omitempty"`
}

// AddVirtualFolderRequest is the body of POST /Library/VirtualFolders.
type AddVirtualFolderRequest struct {
	LibraryOptions LibraryOptions `json:"LibraryOptions"`
}

// AddMediaPathRequest is the body of POST /Library/VirtualFolders/Paths.
type AddMediaPathRequest struct {
	Name     string        `json:"Name"`
	PathInfo MediaPathInfo `json:"PathInfo"`
}

// User is one entry of GET /Users. Policy stays in wire form so that a
// read-modify-write round trip preserves every field.
type User struct {
	ID     string `json:"Id"`
	Name   string `json:"Name"`
	Policy Record `json:"Policy,omitempty"`
}

// CreateUserRequest is the body of POST /Users/New.
type CreateUserRequest struct {
	Name     string `json:"Name"`
	Password string `json:"Password"`
}

// AuthenticateRequest is the body of POST /Users/AuthenticateByName.
type AuthenticateRequest struct {
	Username string `json:"Username"`
	Pw       string `json:"Pw"`
}

// AuthenticationResult is the AuthenticateByName response.
type AuthenticationResult struct {
	User        *User  `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// PluginInfo is one entry of GET /Plugins.
type PluginInfo struct {
	ID      string `json:"Id"`
	Name    string `json:"Name"`
	Version string `json:"Version"`
	Status  string `json:"Status"`
}

// PluginStatusActive is the status of a loaded plugin. Other statuses, such
// as "Restart" right after an install, mean the configuration endpoint is not
// served yet.
const PluginStatusActive = "Active"

// Loaded reports whether the plugin is running. An empty status is treated
// as loaded.
func (p PluginInfo) Loaded() bool {
	return p.Status == "" || p.Status == PluginStatusActive
}
