// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/manifest"
)

// API is the read side of the Jellyfin client.
type API interface {
	GetSystemConfiguration(ctx context.Context) (jellyfin.Record, error)
	GetNamedConfiguration(ctx context.Context, section string) (jellyfin.Record, error)
	GetVirtualFolders(ctx context.Context) ([]jellyfin.VirtualFolder, error)
	GetUsers(ctx context.Context) ([]jellyfin.User, error)
	GetUser(ctx context.Context, id string) (*jellyfin.User, error)
	GetPlugins(ctx context.Context) ([]jellyfin.PluginInfo, error)
	GetPluginConfiguration(ctx context.Context, id string) (jellyfin.Record, error)
	GetPublicSystemInfo(ctx context.Context) (*jellyfin.PublicSystemInfo, error)
}

var _ API = (*jellyfin.Client)(nil)

// Reader builds ActualState snapshots.
type Reader struct {
	api API
}

// NewReader creates a Reader.
func NewReader(api API) *Reader {
	return &Reader{api: api}
}

// ReadActualState issues one read per domain. A failed read is recorded in
// ReadErrors and the other domains are still read. Plugins and startup
// state are only read when desired manages them. The returned error is
// non-nil only when ctx is done.
func (r *Reader) ReadActualState(ctx context.Context, desired *manifest.DesiredState) (*ActualState, error) {
	s := NewActualState()

	readers := []struct {
		domain Domain
		read   func(context.Context, *ActualState) error
		want   bool
	}{
		{DomainSystem, r.readSystem, true},
		{DomainEncoding, r.readNamed(jellyfin.SectionEncoding, &s.EncodingRaw), true},
		{DomainBranding, r.readNamed(jellyfin.SectionBranding, &s.BrandingRaw), true},
		{DomainLibraries, r.readLibraries, true},
		{DomainUsers, r.readUsers, true},
		{DomainPlugins, r.readPlugins(desired), Managed(desired, DomainPlugins)},
		{DomainStartup, r.readStartup, Managed(desired, DomainStartup)},
	}

	for _, rd := range readers {
		if !rd.want {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := rd.read(ctx, s); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("domain", string(rd.domain)).Msg("Failed to read current state")
			s.ReadErrors[rd.domain] = err
		}
	}
	return s, nil
}

func (r *Reader) readSystem(ctx context.Context, s *ActualState) error {
	rec, err := r.api.GetSystemConfiguration(ctx)
	if err != nil {
		return err
	}
	s.SystemRaw = rec
	return nil
}

func (r *Reader) readNamed(section string, dst *jellyfin.Record) func(context.Context, *ActualState) error {
	return func(ctx context.Context, _ *ActualState) error {
		rec, err := r.api.GetNamedConfiguration(ctx, section)
		if err != nil {
			return err
		}
		*dst = rec
		return nil
	}
}

func (r *Reader) readLibraries(ctx context.Context, s *ActualState) error {
	folders, err := r.api.GetVirtualFolders(ctx)
	if err != nil {
		return err
	}
	for _, f := range folders {
		paths := append([]string(nil), f.Locations...)
		if len(paths) == 0 && f.LibraryOptions != nil {
			for _, p := range f.LibraryOptions.PathInfos {
				paths = append(paths, p.Path)
			}
		}
		sort.Strings(paths)
		s.Libraries = append(s.Libraries, ActualLibrary{
			Name:           f.Name,
			CollectionType: f.CollectionType,
			ItemID:         f.ItemID,
			Paths:          paths,
		})
	}
	return nil
}

// readUsers takes policies from the list payload and re-reads a user whose
// policy is missing there.
func (r *Reader) readUsers(ctx context.Context, s *ActualState) error {
	users, err := r.api.GetUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		policy := u.Policy
		if policy == nil && u.ID != "" {
			full, err := r.api.GetUser(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("read policy of %q: %w", u.Name, err)
			}
			policy = full.Policy
		}
		s.Users = append(s.Users, ActualUser{ID: u.ID, Name: u.Name, Policy: policy})
	}
	return nil
}

func (r *Reader) readPlugins(desired *manifest.DesiredState) func(context.Context, *ActualState) error {
	return func(ctx context.Context, s *ActualState) error {
		plugins, err := r.api.GetPlugins(ctx)
		if err != nil {
			return err
		}

		declared := make(map[string]bool)
		if desired != nil {
			for _, p := range desired.Plugins {
				if len(p.Configuration) > 0 {
					declared[p.Name] = true
				}
			}
		}

		s.Plugins = make([]ActualPlugin, 0, len(plugins))
		for _, p := range plugins {
			ap := ActualPlugin{ID: p.ID, Name: p.Name, Version: p.Version, Loaded: p.Loaded()}
			if declared[p.Name] && ap.Loaded && p.ID != "" {
				cfg, err := r.api.GetPluginConfiguration(ctx, p.ID)
				if err != nil {
					return fmt.Errorf("read configuration of plugin %q: %w", p.Name, err)
				}
				ap.Configuration = cfg
			}
			s.Plugins = append(s.Plugins, ap)
		}
		return nil
	}
}

func (r *Reader) readStartup(ctx context.Context, s *ActualState) error {
	info, err := r.api.GetPublicSystemInfo(ctx)
	if err != nil {
		return err
	}
	completed := info.StartupWizardCompleted
	s.StartupWizardCompleted = &completed
	return nil
}
