// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package manifest

import (
	"sort"
	"strings"
)

// Field is one managed setting: the key path in the server's configuration
// record and the desired value in JSON form.
type Field struct {
	// Path is the key path inside the record, e.g. ["TrickplayOptions", "EnableHwEncoding"].
	Path []string

	// Value is a bool, string, int, []interface{} or map[string]interface{}.
	Value interface{}

	// Unordered marks list values compared as sets.
	Unordered bool
}

// Name returns the dotted path.
func (f Field) Name() string {
	return strings.Join(f.Path, ".")
}

func appendBool(fields []Field, v *bool, path ...string) []Field {
	if v == nil {
		return fields
	}
	return append(fields, Field{Path: path, Value: *v})
}

func appendString(fields []Field, v *string, path ...string) []Field {
	if v == nil {
		return fields
	}
	return append(fields, Field{Path: path, Value: *v})
}

func appendInt(fields []Field, v *int, path ...string) []Field {
	if v == nil {
		return fields
	}
	return append(fields, Field{Path: path, Value: *v})
}

// Fields returns the managed fields of /System/Configuration.
func (s *SystemSettings) Fields() []Field {
	if s == nil {
		return nil
	}
	var fields []Field
	fields = appendBool(fields, s.EnableMetrics, "EnableMetrics")

	if s.PluginRepositories != nil {
		repos := make([]interface{}, 0, len(s.PluginRepositories))
		for _, r := range s.PluginRepositories {
			repos = append(repos, map[string]interface{}{
				"Name":    r.Name,
				"Url":     r.URL,
				"Enabled": r.Enabled != nil && *r.Enabled,
			})
		}
		fields = append(fields, Field{Path: []string{"PluginRepositories"}, Value: repos, Unordered: true})
	}

	if t := s.TrickplayOptions; t != nil {
		fields = appendBool(fields, t.EnableHwAcceleration, "TrickplayOptions", "EnableHwAcceleration")
		fields = appendBool(fields, t.EnableHwEncoding, "TrickplayOptions", "EnableHwEncoding")
	}
	return fields
}

// Fields returns the managed fields of the encoding section.
func (e *EncodingSettings) Fields() []Field {
	if e == nil {
		return nil
	}
	var fields []Field
	fields = appendBool(fields, e.EnableHardwareEncoding, "EnableHardwareEncoding")
	fields = appendString(fields, e.HardwareAccelerationType, "HardwareAccelerationType")
	fields = appendString(fields, e.VaapiDevice, "VaapiDevice")
	fields = appendString(fields, e.QsvDevice, "QsvDevice")

	if e.HardwareDecodingCodecs != nil {
		codecs := make([]interface{}, 0, len(e.HardwareDecodingCodecs))
		for _, c := range e.HardwareDecodingCodecs {
			codecs = append(codecs, c)
		}
		fields = append(fields, Field{Path: []string{"HardwareDecodingCodecs"}, Value: codecs, Unordered: true})
	}

	fields = appendBool(fields, e.EnableDecodingColorDepth10Hevc, "EnableDecodingColorDepth10Hevc")
	fields = appendBool(fields, e.EnableDecodingColorDepth10Vp9, "EnableDecodingColorDepth10Vp9")
	fields = appendBool(fields, e.EnableDecodingColorDepth10HevcRext, "EnableDecodingColorDepth10HevcRext")
	fields = appendBool(fields, e.EnableDecodingColorDepth12HevcRext, "EnableDecodingColorDepth12HevcRext")
	fields = appendBool(fields, e.AllowHevcEncoding, "AllowHevcEncoding")
	fields = appendBool(fields, e.AllowAv1Encoding, "AllowAv1Encoding")
	return fields
}

// Fields returns the managed fields of the branding section.
func (b *BrandingSettings) Fields() []Field {
	if b == nil {
		return nil
	}
	var fields []Field
	fields = appendString(fields, b.LoginDisclaimer, "LoginDisclaimer")
	fields = appendString(fields, b.CustomCss, "CustomCss")
	fields = appendBool(fields, b.SplashscreenEnabled, "SplashscreenEnabled")
	return fields
}

// Fields returns the managed fields of a user policy.
func (p *UserPolicy) Fields() []Field {
	if p == nil {
		return nil
	}
	var fields []Field
	fields = appendBool(fields, p.IsAdministrator, "IsAdministrator")
	fields = appendInt(fields, p.LoginAttemptsBeforeLockout, "LoginAttemptsBeforeLockout")
	return fields
}

// Fields returns one field per leaf of Configuration, sorted by name. Nested
// objects are flattened so that sibling keys the manifest does not name are
// kept on merge.
func (p PluginDef) Fields() []Field {
	var fields []Field
	flatten(p.Configuration, nil, &fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name() < fields[j].Name() })
	return fields
}

func flatten(m map[string]interface{}, prefix []string, out *[]Field) {
	for k, v := range m {
		path := append(append([]string(nil), prefix...), k)
		if nested, ok := v.(map[string]interface{}); ok && len(nested) > 0 {
			flatten(nested, path, out)
			continue
		}
		*out = append(*out, Field{Path: path, Value: v})
	}
}
