// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
)

// Record is a Jellyfin configuration object kept in its wire form. Numbers
// decode as json.Number so fields the agent never touches are written back
// exactly as they were read.
type Record map[string]interface{}

// DecodeRecord parses a JSON object into a Record.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r == nil {
		r = Record{}
	}
	return r, nil
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out, _ := cloneValue(map[string]interface{}(r)).(map[string]interface{})
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case Record:
		return Record(cloneValue(map[string]interface{}(t)).(map[string]interface{}))
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// Object returns the nested object under key, or nil.
func (r Record) Object(key string) Record {
	switch t := r[key].(type) {
	case map[string]interface{}:
		return Record(t)
	case Record:
		return t
	default:
		return nil
	}
}

// Bool returns the boolean under key. Missing or non-boolean values read as false.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// String returns the string under key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the integer under key and whether it was present and numeric.
func (r Record) Int(key string) (int, bool) {
	switch t := r[key].(type) {
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

// Strings returns the string list under key. Non-string entries are skipped.
func (r Record) Strings(key string) []string {
	switch t := r[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Objects returns the list of objects under key. Non-object entries are skipped.
func (r Record) Objects(key string) []Record {
	list, ok := r[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case map[string]interface{}:
			out = append(out, Record(t))
		case Record:
			out = append(out, t)
		}
	}
	return out
}

// Equal reports whether two records hold the same JSON value. Numbers are
// compared by their decimal text.
func (r Record) Equal(other Record) bool {
	a, errA := json.Marshal(r)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(r, other)
	}
	return bytes.Equal(a, b)
}
