// ABOUTME: Standardized JSON response envelope and error helpers for HTTP handlers.
// ABOUTME: Every API reply carries "success"; failures add error, code, status, and optional field/details.

package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

// ErrorResponse is the failure envelope of every JSON endpoint.
//
// Usage:
//
//	WriteError(w, http.StatusBadRequest, ErrInvalidBody, "The request body is malformed")
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`             // Human-readable message
	Code    string `json:"code"`              // Machine-readable code, e.g. "missing_field"
	Status  int    `json:"status"`            // HTTP status code
	Field   string `json:"field,omitempty"`   // Field that failed validation
	Details string `json:"details,omitempty"` // Extra context
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: status,
	})
}

// WriteErrorWithField writes a failure envelope naming the offending field.
//
// Example:
//
//	WriteErrorWithField(w, http.StatusBadRequest, ErrMissingField, "Name is required", "name")
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeErrorResponse(w, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: status,
		Field:  field,
	})
}

// WriteErrorWithDetails writes a failure envelope with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{
		Error:   message,
		Code:    code,
		Status:  status,
		Details: details,
	})
}

// WriteFromError maps a domain error onto the envelope. Unrecognized errors
// become a 500 whose message is fallback.
func WriteFromError(w http.ResponseWriter, err error, fallback string) {
	var parseErr *schema.ParseError
	var userErr interface{ UserMessage() string }

	switch {
	case stderrors.Is(err, library.ErrMissingName):
		WriteErrorWithField(w, http.StatusBadRequest, ErrMissingField, "Name is required", "name")
	case stderrors.Is(err, library.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrNotFound, "Schema not found")
	case stderrors.As(err, &parseErr):
		WriteErrorWithDetails(w, http.StatusUnprocessableEntity, ErrInvalidSchema, "Invalid schema format", parseErr.Error())
	case stderrors.As(err, &userErr):
		WriteErrorWithDetails(w, http.StatusBadGateway, ErrUpstream, userErr.UserMessage(), err.Error())
	default:
		WriteErrorWithDetails(w, http.StatusInternalServerError, ErrInternal, fallback, err.Error())
	}
}

// WriteJSON writes a success reply: payload's fields plus "success": true.
func WriteJSON(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	resp.Success = false
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// Error codes
const (
	// Client errors (4xx)
	ErrInvalidRequest = "invalid_request"
	ErrInvalidBody    = "invalid_request_body"
	ErrMissingField   = "missing_field"
	ErrInvalidSchema  = "invalid_schema"
	ErrNotFound       = "not_found"
	ErrBusy           = "busy"

	// Server errors (5xx)
	ErrInternal           = "internal_error"
	ErrDatabaseError      = "database_error"
	ErrUpstream           = "upstream_error"
	ErrServiceUnavailable = "service_unavailable"
)
