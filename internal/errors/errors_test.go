// ABOUTME: Unit tests for the JSON response envelope helpers.
// ABOUTME: Validates envelope fields, headers, and the mapping of domain errors to status codes.

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"bad request", http.StatusBadRequest, ErrInvalidBody, "Request body is malformed"},
		{"not found", http.StatusNotFound, ErrNotFound, "Schema not found"},
		{"internal", http.StatusInternalServerError, ErrInternal, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			resp := decode(t, w)
			if resp.Success {
				t.Error("expected success false")
			}
			if resp.Code != tt.code || resp.Error != tt.message || resp.Status != tt.status {
				t.Errorf("unexpected envelope %+v", resp)
			}
			if resp.Field != "" || resp.Details != "" {
				t.Errorf("expected no field or details, got %+v", resp)
			}
		})
	}
}

func TestWriteErrorWithField(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorWithField(w, http.StatusBadRequest, ErrMissingField, "Name is required", "name")

	resp := decode(t, w)
	if resp.Field != "name" {
		t.Errorf("expected field name, got %q", resp.Field)
	}
	if resp.Code != ErrMissingField {
		t.Errorf("expected code %s, got %s", ErrMissingField, resp.Code)
	}
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorWithDetails(w, http.StatusInternalServerError, ErrDatabaseError, "Failed to save schema", "disk full")

	resp := decode(t, w)
	if resp.Details != "disk full" {
		t.Errorf("expected details, got %q", resp.Details)
	}
}

func TestErrorResponseOmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: "x", Code: ErrInternal, Status: 500})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"success", "error", "code", "status"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}
	for _, key := range []string{"field", "details"} {
		if _, ok := raw[key]; ok {
			t.Errorf("expected %q to be omitted in %s", key, data)
		}
	}
}

type upstreamErr struct{}

func (upstreamErr) Error() string       { return "dial tcp: refused" }
func (upstreamErr) UserMessage() string { return "Failed to generate schema" }

func TestWriteFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
		wantField  string
	}{
		{"missing name", fmt.Errorf("save: %w", library.ErrMissingName), http.StatusBadRequest, ErrMissingField, "Name is required", "name"},
		{"not found", library.ErrNotFound, http.StatusNotFound, ErrNotFound, "Schema not found", ""},
		{"parse error", &schema.ParseError{Line: 1, Column: 2, Msg: "unexpected end"}, http.StatusUnprocessableEntity, ErrInvalidSchema, "Invalid schema format", ""},
		{"upstream", fmt.Errorf("generate: %w", upstreamErr{}), http.StatusBadGateway, ErrUpstream, "Failed to generate schema", ""},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ErrInternal, "Failed to save schema", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteFromError(w, tt.err, "Failed to save schema")

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := decode(t, w)
			if resp.Code != tt.wantCode || resp.Error != tt.wantError || resp.Field != tt.wantField {
				t.Errorf("unexpected envelope %+v", resp)
			}
			if resp.Status != w.Code {
				t.Errorf("body status %d does not match HTTP status %d", resp.Status, w.Code)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]any{"id": "abc"})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true || body["id"] != "abc" {
		t.Errorf("unexpected body %v", body)
	}
}
