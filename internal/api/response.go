// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/venkyr77/jellarr/internal/logging"
)

// Error codes.
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeNoReportYet      = "NO_REPORT_YET"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// APIResponse wraps every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    APIMeta     `json:"meta"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta carries response metadata.
type APIMeta struct {
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, &APIResponse{
		Success: status < http.StatusBadRequest,
		Data:    data,
		Meta:    APIMeta{Timestamp: time.Now().UTC()},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeResponse(w, status, &APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, RequestID: requestID(r)},
		Meta:    APIMeta{Timestamp: time.Now().UTC()},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp *APIResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}
