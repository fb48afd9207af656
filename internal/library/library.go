// ABOUTME: Contract of the schema library: named, saved schemas.
// ABOUTME: Implemented by the SQLite store and by the remote HTTP client.

package library

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/2389/dic/internal/schema"
)

var (
	// ErrNotFound is returned for an unknown saved schema ID.
	ErrNotFound = errors.New("schema not found")
	// ErrMissingName is returned when saving without a name.
	ErrMissingName = errors.New("name is required")
)

// Entry is one saved schema.
type Entry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Schema      schema.Schema `json:"schema"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Service stores and retrieves saved schemas.
type Service interface {
	Save(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Delete(ctx context.Context, id string) error
}

// Normalize trims the entry's text fields and rejects an empty name.
func Normalize(e Entry) (Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Description = strings.TrimSpace(e.Description)
	if e.Name == "" {
		return e, ErrMissingName
	}
	if e.Schema == nil {
		e.Schema = schema.Schema{}
	}
	return e, nil
}
