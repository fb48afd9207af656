// ABOUTME: JSON API for schema generation and the saved schema library.
// ABOUTME: Serves /api/generate-schema and /api/schemas using the shared response envelope.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apierrors "github.com/2389/dic/internal/errors"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

const maxRequestBody = 1 << 20

// Generator turns a prompt into a schema.
type Generator interface {
	Generate(ctx context.Context, prompt string) (schema.Schema, error)
}

// Searcher is implemented by libraries that can filter by text.
type Searcher interface {
	Search(ctx context.Context, q string) ([]library.Entry, error)
}

type Handlers struct {
	gen    Generator
	lib    library.Service
	logger *zap.Logger
}

func NewHandlers(gen Generator, lib library.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{gen: gen, lib: lib, logger: logger.Named("api")}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-schema", h.generateSchema)
		r.Post("/schemas", h.saveSchema)
		r.Get("/schemas", h.listSchemas)
		r.Get("/schemas/{id}", h.getSchema)
		r.Delete("/schemas/{id}", h.deleteSchema)
	})
}

// GenerateRequest is the body of POST /api/generate-schema.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// SaveRequest is the body of POST /api/schemas.
type SaveRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "Invalid request body", err.Error())
		return false
	}
	return true
}

func (h *Handlers) generateSchema(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Prompt is required", "prompt")
		return
	}
	if h.gen == nil {
		apierrors.WriteError(w, http.StatusServiceUnavailable, apierrors.ErrServiceUnavailable, "Failed to connect to AI service")
		return
	}

	s, err := h.gen.Generate(r.Context(), prompt)
	if err != nil {
		h.logger.Warn("generation failed", zap.Error(err))
		apierrors.WriteFromError(w, err, "Failed to generate schema")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"schema": s})
}

func (h *Handlers) saveSchema(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := schema.Schema{}
	if len(req.Schema) > 0 {
		parsed, err := schema.Parse(string(req.Schema))
		if err != nil {
			apierrors.WriteFromError(w, err, "Failed to save schema")
			return
		}
		s = parsed
	}

	entry, err := h.lib.Save(r.Context(), library.Entry{Name: req.Name, Description: req.Description, Schema: s})
	if err != nil {
		h.logger.Warn("save failed", zap.Error(err))
		apierrors.WriteFromError(w, err, "Failed to save schema")
		return
	}
	apierrors.WriteJSON(w, http.StatusCreated, map[string]any{"id": entry.ID})
}

func (h *Handlers) listSchemas(w http.ResponseWriter, r *http.Request) {
	var (
		entries []library.Entry
		err     error
	)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if searcher, ok := h.lib.(Searcher); ok && q != "" {
		entries, err = searcher.Search(r.Context(), q)
	} else {
		entries, err = h.lib.List(r.Context())
	}
	if err != nil {
		h.logger.Warn("list failed", zap.Error(err))
		apierrors.WriteFromError(w, err, "Failed to load schemas")
		return
	}
	if entries == nil {
		entries = []library.Entry{}
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"schemas": entries})
}

func (h *Handlers) getSchema(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lib.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteFromError(w, err, "Failed to load schemas")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"schema": entry})
}

func (h *Handlers) deleteSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		apierrors.WriteFromError(w, err, "Failed to delete schema")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, nil)
}
