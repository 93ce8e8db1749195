// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/venkyr77/jellarr/internal/validation"
)

// ErrInvalidManifest wraps every load, parse and validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// document is the on-disk shape.
type document struct {
	Version  int               `yaml:"version" validate:"required,gt=0"`
	BaseURL  string            `yaml:"base_url" validate:"required,httpurl"`
	System   *SystemSettings   `yaml:"system"`
	Encoding *EncodingSettings `yaml:"encoding"`
	Branding *BrandingSettings `yaml:"branding"`
	Library  *libraryDocument  `yaml:"library"`
	Users    []userDocument    `yaml:"users" validate:"omitempty,dive"`
	Plugins  []PluginDef       `yaml:"plugins" validate:"omitempty,dive"`
	Startup  *StartupSettings  `yaml:"startup"`
}

type libraryDocument struct {
	VirtualFolders []virtualFolderDocument `yaml:"virtualFolders" validate:"omitempty,dive"`
}

type virtualFolderDocument struct {
	Name           string                 `yaml:"name" validate:"required"`
	CollectionType string                 `yaml:"collectionType" validate:"required,oneof=movies tvshows music musicvideos homevideos boxsets books mixed"`
	LibraryOptions libraryOptionsDocument `yaml:"libraryOptions"`
}

type libraryOptionsDocument struct {
	PathInfos []pathInfoDocument `yaml:"pathInfos" validate:"min=1,dive"`
}

type pathInfoDocument struct {
	Path string `yaml:"path" validate:"required"`
}

type userDocument struct {
	Name         string      `yaml:"name" validate:"required"`
	Password     string      `yaml:"password"`
	PasswordFile string      `yaml:"passwordFile"`
	Policy       *UserPolicy `yaml:"policy"`
}

// Load reads, parses and validates the manifest at path. Password files are
// read here, so the returned state needs no further I/O.
func Load(path string) (*DesiredState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidManifest, path, err)
	}
	state, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte) (*DesiredState, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if err := validation.ValidateStruct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := doc.validateIdentities(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	state, err := doc.toDesiredState()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return state, nil
}

// validateIdentities enforces name uniqueness per collection and the
// password/passwordFile exclusivity.
func (d *document) validateIdentities() error {
	var errs []error

	if d.Library != nil {
		seen := make(map[string]bool)
		for i, vf := range d.Library.VirtualFolders {
			if seen[vf.Name] {
				errs = append(errs, fmt.Errorf("library.virtualFolders[%d].name: duplicate library %q", i, vf.Name))
			}
			seen[vf.Name] = true
		}
	}

	seenUsers := make(map[string]bool)
	for i, u := range d.Users {
		if seenUsers[u.Name] {
			errs = append(errs, fmt.Errorf("users[%d].name: duplicate user %q", i, u.Name))
		}
		seenUsers[u.Name] = true

		hasPassword := strings.TrimSpace(u.Password) != ""
		hasFile := strings.TrimSpace(u.PasswordFile) != ""
		if hasPassword == hasFile {
			errs = append(errs, fmt.Errorf("users[%d]: must specify exactly one of 'password' or 'passwordFile'", i))
		}
	}

	seenPlugins := make(map[string]bool)
	for i, p := range d.Plugins {
		if seenPlugins[p.Name] {
			errs = append(errs, fmt.Errorf("plugins[%d].name: duplicate plugin %q", i, p.Name))
		}
		seenPlugins[p.Name] = true
	}

	return errors.Join(errs...)
}

func (d *document) toDesiredState() (*DesiredState, error) {
	state := &DesiredState{
		Version:   d.Version,
		BaseURL:   strings.TrimSuffix(d.BaseURL, "/"),
		System:    d.System,
		Encoding:  d.Encoding,
		Branding:  d.Branding,
		Libraries: []LibraryDef{},
		Users:     make([]UserDef, 0, len(d.Users)),
		Plugins:   d.Plugins,
		Startup:   d.Startup,
	}
	if state.Plugins == nil {
		state.Plugins = []PluginDef{}
	}
	if state.Encoding != nil && state.Encoding.HardwareDecodingCodecs != nil {
		state.Encoding.HardwareDecodingCodecs = uniqueStrings(state.Encoding.HardwareDecodingCodecs)
	}

	if d.Library != nil {
		for _, vf := range d.Library.VirtualFolders {
			paths := make([]string, 0, len(vf.LibraryOptions.PathInfos))
			for _, p := range vf.LibraryOptions.PathInfos {
				paths = append(paths, p.Path)
			}
			state.Libraries = append(state.Libraries, LibraryDef{
				Name:           vf.Name,
				CollectionType: vf.CollectionType,
				Paths:          uniqueStrings(paths),
			})
		}
	}

	for i, u := range d.Users {
		password := u.Password
		if strings.TrimSpace(u.PasswordFile) != "" {
			raw, err := os.ReadFile(u.PasswordFile)
			if err != nil {
				return nil, fmt.Errorf("users[%d].passwordFile: %w", i, err)
			}
			password = strings.TrimSpace(string(raw))
			if password == "" {
				return nil, fmt.Errorf("users[%d].passwordFile: %s is empty", i, u.PasswordFile)
			}
		}
		state.Users = append(state.Users, UserDef{
			Name:         u.Name,
			Password:     password,
			PasswordFile: u.PasswordFile,
			Policy:       u.Policy,
		})
	}

	return state, nil
}

// uniqueStrings drops repeats and keeps first-seen order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
