// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/preflight"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	Code      string `json:"error"`
	Detail    string `json:"detail"`
	Source    string `json:"source,omitempty"`
	Op        string `json:"op,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes
const (
	CodeSourceFailed   = "source_failed"
	CodeCheckTimeout   = "check_timeout"
	CodeCheckCanceled  = "check_canceled"
	CodeNotInitialised = "not_initialised"
	CodeInternal       = "internal_error"
)

// writeJSON is a helper to write JSON responses with a status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeCheckError maps a failed check onto a status code. A port failure is
// an upstream problem (502); running out of the check deadline is 504.
func writeCheckError(w http.ResponseWriter, r *http.Request, err error) {
	body := APIError{
		Code:      CodeInternal,
		Detail:    err.Error(),
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	status := http.StatusInternalServerError

	var se *preflight.SourceError
	if errors.As(err, &se) {
		body.Source, body.Op = se.Source, se.Op
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		body.Code, status = CodeCheckTimeout, http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; the status is for the access log only
		body.Code, status = CodeCheckCanceled, 499
	case se != nil:
		body.Code, status = CodeSourceFailed, http.StatusBadGateway
	}
	writeJSON(w, status, body)
}
