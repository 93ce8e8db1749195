// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

// Lookup returns the value at a key path.
func (r Record) Lookup(path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := r
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		cur = Record(nil)
		switch t := v.(type) {
		case map[string]interface{}:
			cur = t
		case Record:
			cur = t
		}
		if cur == nil {
			return nil, false
		}
	}
	return nil, false
}

// Set stores v at a key path, creating intermediate objects. An
// intermediate value that is not an object is replaced.
func (r Record) Set(path []string, v interface{}) {
	if len(path) == 0 {
		return
	}
	cur := r
	for _, key := range path[:len(path)-1] {
		var next Record
		switch t := cur[key].(type) {
		case map[string]interface{}:
			next = t
		case Record:
			next = t
		default:
			next = Record{}
			cur[key] = map[string]interface{}(next)
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

// ValuesEqual compares two JSON values by their canonical encoding, so an
// int from a manifest equals the json.Number read from the server. With
// unordered set, lists are compared as multisets.
func ValuesEqual(a, b interface{}, unordered bool) bool {
	ca, errA := canonical(a, unordered)
	cb, errB := canonical(b, unordered)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// canonical re-encodes v through a generic decode so object keys come out
// sorted at every depth.
func canonical(v interface{}, unordered bool) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	list, ok := generic.([]interface{})
	if !unordered || !ok {
		return json.Marshal(generic)
	}

	items := make([]string, 0, len(list))
	for _, item := range list {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		items = append(items, string(b))
	}
	sort.Strings(items)
	return json.Marshal(items)
}
