// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package state

import (
	"sort"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/manifest"
)

// Domain is one configuration area reconciled with its own rules.
type Domain string

const (
	DomainSystem    Domain = "system"
	DomainEncoding  Domain = "encoding"
	DomainBranding  Domain = "branding"
	DomainLibraries Domain = "libraries"
	DomainUsers     Domain = "users"
	DomainPlugins   Domain = "plugins"
	DomainStartup   Domain = "startup"
)

// Domains lists every domain in execution order.
var Domains = []Domain{
	DomainSystem,
	DomainEncoding,
	DomainBranding,
	DomainLibraries,
	DomainUsers,
	DomainPlugins,
	DomainStartup,
}

// Managed reports whether desired declares anything for d.
func Managed(desired *manifest.DesiredState, d Domain) bool {
	if desired == nil {
		return false
	}
	switch d {
	case DomainSystem:
		return desired.System != nil
	case DomainEncoding:
		return desired.Encoding != nil
	case DomainBranding:
		return desired.Branding != nil
	case DomainLibraries:
		return len(desired.Libraries) > 0
	case DomainUsers:
		return len(desired.Users) > 0
	case DomainPlugins:
		return len(desired.Plugins) > 0
	case DomainStartup:
		return desired.Startup != nil && desired.Startup.CompleteStartupWizard != nil
	default:
		return false
	}
}

// ActualState is a snapshot of the server taken at the start of a run. It
// is never reused across runs.
type ActualState struct {
	// Raw configuration records, kept whole for read-modify-write.
	SystemRaw   jellyfin.Record
	EncodingRaw jellyfin.Record
	BrandingRaw jellyfin.Record

	Libraries []ActualLibrary
	Users     []ActualUser

	// Plugins is nil unless plugins were read.
	Plugins []ActualPlugin

	// StartupWizardCompleted is nil unless startup state was read.
	StartupWizardCompleted *bool

	// ReadErrors holds the domains whose read failed.
	ReadErrors map[Domain]error
}

// ActualLibrary is one library as the server reports it.
type ActualLibrary struct {
	Name           string
	CollectionType string
	ItemID         string
	Paths          []string
}

// ActualUser is one user. Policy is the full policy record.
type ActualUser struct {
	ID     string
	Name   string
	Policy jellyfin.Record
}

// ActualPlugin is one installed plugin. Configuration is only read for
// loaded plugins the manifest configures; it is nil otherwise.
type ActualPlugin struct {
	ID            string
	Name          string
	Version       string
	Loaded        bool
	Configuration jellyfin.Record
}

// NewActualState returns an empty snapshot with non-nil collections.
func NewActualState() *ActualState {
	return &ActualState{
		SystemRaw:   jellyfin.Record{},
		EncodingRaw: jellyfin.Record{},
		BrandingRaw: jellyfin.Record{},
		Libraries:   []ActualLibrary{},
		Users:       []ActualUser{},
		ReadErrors:  map[Domain]error{},
	}
}

// ReadError returns the read failure for d, or nil.
func (s *ActualState) ReadError(d Domain) error {
	if s == nil || s.ReadErrors == nil {
		return nil
	}
	return s.ReadErrors[d]
}

// Library finds a library by name.
func (s *ActualState) Library(name string) (ActualLibrary, bool) {
	for _, l := range s.Libraries {
		if l.Name == name {
			return l, true
		}
	}
	return ActualLibrary{}, false
}

// User finds a user by name.
func (s *ActualState) User(name string) (ActualUser, bool) {
	for _, u := range s.Users {
		if u.Name == name {
			return u, true
		}
	}
	return ActualUser{}, false
}

// Plugin finds an installed plugin by name.
func (s *ActualState) Plugin(name string) (ActualPlugin, bool) {
	for _, p := range s.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return ActualPlugin{}, false
}

// Record returns the raw record of a settings domain.
func (s *ActualState) Record(d Domain) jellyfin.Record {
	switch d {
	case DomainSystem:
		return s.SystemRaw
	case DomainEncoding:
		return s.EncodingRaw
	case DomainBranding:
		return s.BrandingRaw
	default:
		return nil
	}
}

// DesiredFields returns the managed fields of a settings domain.
func DesiredFields(desired *manifest.DesiredState, d Domain) []manifest.Field {
	switch d {
	case DomainSystem:
		return desired.System.Fields()
	case DomainEncoding:
		return desired.Encoding.Fields()
	case DomainBranding:
		return desired.Branding.Fields()
	default:
		return nil
	}
}

// FieldDrift is one managed field whose server value differs.
type FieldDrift struct {
	Field    manifest.Field
	Observed interface{}
	Present  bool
}

// Drift compares the managed fields against a record.
func Drift(rec jellyfin.Record, fields []manifest.Field) []FieldDrift {
	var out []FieldDrift
	for _, f := range fields {
		observed, ok := rec.Lookup(f.Path)
		if ok && jellyfin.ValuesEqual(f.Value, observed, f.Unordered) {
			continue
		}
		out = append(out, FieldDrift{Field: f, Observed: observed, Present: ok})
	}
	return out
}

// MissingPaths returns the desired paths the server does not have, in
// desired order.
func MissingPaths(actual, desired []string) []string {
	have := make(map[string]bool, len(actual))
	for _, p := range actual {
		have[p] = true
	}
	var missing []string
	for _, p := range desired {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	return missing
}

// ExtraPaths returns server paths the manifest does not list, sorted.
func ExtraPaths(actual, desired []string) []string {
	want := make(map[string]bool, len(desired))
	for _, p := range desired {
		want[p] = true
	}
	var extra []string
	for _, p := range actual {
		if !want[p] {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	return extra
}

// collectionTypeMixed is reported by the server as an empty type.
const collectionTypeMixed = "mixed"

// CollectionTypeDrifted reports whether a library's server collection type
// differs from the declared one.
func CollectionTypeDrifted(server, desired string) bool {
	if server == "" {
		server = collectionTypeMixed
	}
	return server != desired
}
