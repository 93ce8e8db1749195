// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package jellyfin

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAPI is matched by every error returned from an API call, whether the
// server answered with a non-2xx status or the request never completed.
var ErrAPI = errors.New("jellyfin api error")

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// APIError describes one failed API call. StatusCode is 0 when no response
// was received; Err then carries the transport cause.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("jellyfin %s %s failed: %v", e.Method, e.Path, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("jellyfin %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("jellyfin %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrAPI) hold for every *APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the server rejected the request itself
// (4xx). Such failures say nothing about server health.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
