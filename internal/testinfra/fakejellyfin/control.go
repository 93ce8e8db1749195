// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package fakejellyfin

import (
	"net/http"
	"sort"

	"github.com/venkyr77/jellarr/internal/jellyfin"
)

// Fail makes every request to method+path answer with status until
// ClearFailures is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]int{}
}

// SetDown makes the server unreachable, or reachable again.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// AddAPIKey makes token valid.
func (s *Server) AddAPIKey(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// Restart loads every plugin that was pending a restart.
func (s *Server) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plugins {
		p.Status = jellyfin.PluginStatusActive
	}
}

// Requests returns every captured request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Writes returns the captured requests that could change state.
func (s *Server) Writes() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != http.MethodGet && r.Path != jellyfin.PathAuthenticateByName {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the captured requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Seeding

// SeedLibrary adds a library directly.
func (s *Server) SeedLibrary(name, collectionType string, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.libraries = append(s.libraries, &library{
		Name:           name,
		CollectionType: collectionTypeOnServer(collectionType),
		ItemID:         newID("library", name),
		Locations:      append([]string{}, paths...),
	})
}

// SeedUser adds a user with the default policy overlaid by policy.
func (s *Server) SeedUser(name, password string, policy jellyfin.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := defaultPolicy()
	for k, v := range policy {
		p[k] = v
	}
	u := &user{ID: newID("user", name), Name: name, Password: password, Policy: p}
	s.users = append(s.users, u)
	return u.ID
}

// SeedPlugin adds a loaded plugin with the given configuration.
func (s *Server) SeedPlugin(name string, config jellyfin.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config == nil {
		config = jellyfin.Record{}
	}
	p := &plugin{ID: newID("plugin", name), Name: name, Version: "1.0.0.0", Status: jellyfin.PluginStatusActive, Config: config}
	s.plugins = append(s.plugins, p)
	return p.ID
}

// SetSystemValue sets one top-level key of the system configuration.
func (s *Server) SetSystemValue(key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system[key] = v
}

// Inspection

// SystemConfiguration returns a copy of the system configuration.
func (s *Server) SystemConfiguration() jellyfin.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.system.Clone()
}

// NamedConfiguration returns a copy of a configuration section.
func (s *Server) NamedConfiguration(section string) jellyfin.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.named[section].Clone()
}

// LibraryNames returns the library names, sorted.
func (s *Server) LibraryNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.libraries))
	for _, l := range s.libraries {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	return names
}

// LibraryPaths returns the paths of a library, sorted, and whether it exists.
func (s *Server) LibraryPaths(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLibrary(name)
	if l == nil {
		return nil, false
	}
	paths := append([]string{}, l.Locations...)
	sort.Strings(paths)
	return paths, true
}

// UserNames returns the user names, sorted.
func (s *Server) UserNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.users))
	for _, u := range s.users {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	return names
}

// UserPolicy returns a copy of a user's policy.
func (s *Server) UserPolicy(name string) (jellyfin.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(name)
	if u == nil {
		return nil, false
	}
	return u.Policy.Clone(), true
}

// UserPassword returns the password a user was created or seeded with.
func (s *Server) UserPassword(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(name)
	if u == nil {
		return "", false
	}
	return u.Password, true
}

// PluginNames returns installed plugin names, sorted.
func (s *Server) PluginNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.plugins))
	for _, p := range s.plugins {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// PluginConfiguration returns a copy of a plugin's configuration.
func (s *Server) PluginConfiguration(name string) (jellyfin.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPlugin(name)
	if p == nil {
		return nil, false
	}
	return p.Config.Clone(), true
}

// WizardCompleted reports the startup wizard state.
func (s *Server) WizardCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizardCompleted
}
