// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

import (
	"context"
	"net/http"
	"net/url"
)

// Well-known paths.
const (
	PathPublicSystemInfo    = "/System/Info/Public"
	PathSystemConfiguration = "/System/Configuration"
	PathVirtualFolders      = "/Library/VirtualFolders"
	PathVirtualFolderPaths  = "/Library/VirtualFolders/Paths"
	PathUsers               = "/Users"
	PathNewUser             = "/Users/New"
	PathAuthenticateByName  = "/Users/AuthenticateByName"
	PathPlugins             = "/Plugins"
	PathStartupComplete     = "/Startup/Complete"
)

// GetPublicSystemInfo reads the unauthenticated server summary.
func (c *Client) GetPublicSystemInfo(ctx context.Context) (*PublicSystemInfo, error) {
	var info PublicSystemInfo
	if err := c.Request(ctx, http.MethodGet, PathPublicSystemInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSystemConfiguration reads the full server configuration record.
func (c *Client) GetSystemConfiguration(ctx context.Context) (Record, error) {
	var rec Record
	if err := c.Request(ctx, http.MethodGet, PathSystemConfiguration, nil, &rec); err != nil {
		return nil, err
	}
	return ensureRecord(rec), nil
}

// UpdateSystemConfiguration replaces the full server configuration record.
func (c *Client) UpdateSystemConfiguration(ctx context.Context, rec Record) error {
	return c.Request(ctx, http.MethodPost, PathSystemConfiguration, rec, nil)
}

// GetNamedConfiguration reads a configuration section such as SectionEncoding.
func (c *Client) GetNamedConfiguration(ctx context.Context, section string) (Record, error) {
	var rec Record
	if err := c.Request(ctx, http.MethodGet, namedConfigurationPath(section), nil, &rec); err != nil {
		return nil, err
	}
	return ensureRecord(rec), nil
}

// UpdateNamedConfiguration replaces a configuration section.
func (c *Client) UpdateNamedConfiguration(ctx context.Context, section string, rec Record) error {
	return c.Request(ctx, http.MethodPost, namedConfigurationPath(section), rec, nil)
}

// GetVirtualFolders lists the libraries.
func (c *Client) GetVirtualFolders(ctx context.Context) ([]VirtualFolder, error) {
	var folders []VirtualFolder
	if err := c.Request(ctx, http.MethodGet, PathVirtualFolders, nil, &folders); err != nil {
		return nil, err
	}
	if folders == nil {
		folders = []VirtualFolder{}
	}
	return folders, nil
}

// AddVirtualFolder creates a library with its initial paths. The library is
// not scanned.
func (c *Client) AddVirtualFolder(ctx context.Context, name, collectionType string, paths []string) error {
	q := url.Values{}
	q.Set("name", name)
	q.Set("collectionType", collectionType)
	q.Set("refreshLibrary", "false")

	body := AddVirtualFolderRequest{LibraryOptions: LibraryOptions{PathInfos: make([]MediaPathInfo, 0, len(paths))}}
	for _, p := range paths {
		body.LibraryOptions.PathInfos = append(body.LibraryOptions.PathInfos, MediaPathInfo{Path: p})
	}
	return c.Request(ctx, http.MethodPost, PathVirtualFolders+"?"+q.Encode(), body, nil)
}

// AddMediaPath appends one path to an existing library.
func (c *Client) AddMediaPath(ctx context.Context, library, path string) error {
	body := AddMediaPathRequest{Name: library, PathInfo: MediaPathInfo{Path: path}}
	return c.Request(ctx, http.MethodPost, PathVirtualFolderPaths+"?refreshLibrary=false", body, nil)
}

// GetUsers lists all users, policies included.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Request(ctx, http.MethodGet, PathUsers, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// GetUser reads one user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.Request(ctx, http.MethodGet, PathUsers+"/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a user and returns the server's record of it.
func (c *Client) CreateUser(ctx context.Context, name, password string) (*User, error) {
	var u User
	if err := c.Request(ctx, http.MethodPost, PathNewUser, CreateUserRequest{Name: name, Password: password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserPolicy replaces a user's full policy record.
func (c *Client) UpdateUserPolicy(ctx context.Context, id string, policy Record) error {
	return c.Request(ctx, http.MethodPost, PathUsers+"/"+url.PathEscape(id)+"/Policy", policy, nil)
}

// AuthenticateByName checks a username and password.
func (c *Client) AuthenticateByName(ctx context.Context, username, password string) (*AuthenticationResult, error) {
	var res AuthenticationResult
	req := AuthenticateRequest{Username: username, Pw: password}
	if err := c.Request(ctx, http.MethodPost, PathAuthenticateByName, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPlugins lists installed plugins.
func (c *Client) GetPlugins(ctx context.Context) ([]PluginInfo, error) {
	var plugins []PluginInfo
	if err := c.Request(ctx, http.MethodGet, PathPlugins, nil, &plugins); err != nil {
		return nil, err
	}
	if plugins == nil {
		plugins = []PluginInfo{}
	}
	return plugins, nil
}

// InstallPackage installs a plugin package by name from the configured
// repositories.
func (c *Client) InstallPackage(ctx context.Context, name string) error {
	return c.Request(ctx, http.MethodPost, "/Packages/Installed/"+url.PathEscape(name), nil, nil)
}

// GetPluginConfiguration reads a plugin's configuration record.
func (c *Client) GetPluginConfiguration(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := c.Request(ctx, http.MethodGet, pluginConfigurationPath(id), nil, &rec); err != nil {
		return nil, err
	}
	return ensureRecord(rec), nil
}

// UpdatePluginConfiguration replaces a plugin's configuration record.
func (c *Client) UpdatePluginConfiguration(ctx context.Context, id string, rec Record) error {
	return c.Request(ctx, http.MethodPost, pluginConfigurationPath(id), rec, nil)
}

// CompleteStartup marks the first-run wizard as completed.
func (c *Client) CompleteStartup(ctx context.Context) error {
	return c.Request(ctx, http.MethodPost, PathStartupComplete, nil, nil)
}

func namedConfigurationPath(section string) string {
	return PathSystemConfiguration + "/" + url.PathEscape(section)
}

func pluginConfigurationPath(id string) string {
	return PathPlugins + "/" + url.PathEscape(id) + "/Configuration"
}

func ensureRecord(rec Record) Record {
	if rec == nil {
		return Record{}
	}
	return rec
}
