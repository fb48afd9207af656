// ABOUTME: HTTP clients for a remote generation service and schema library.
// ABOUTME: Speak the /api JSON envelope; any failure or success:false becomes a TransportError.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// TransportError is a failed remote call.
type TransportError struct {
	Op     string
	URL    string
	Status int
	// Msg is the server's error message, when it sent one.
	Msg string
	Err error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage is the server's message, or a generic connection failure.
func (e *TransportError) UserMessage() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Failed to connect to AI service"
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}
}

// call sends body (if any) as JSON and decodes a successful reply into out.
func (c client) call(ctx context.Context, op, method, path string, body, out any) error {
	target := c.base + path
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, URL: target, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Op: op, URL: target, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &TransportError{Op: op, URL: target, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &TransportError{Op: op, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("invalid reply: %w", err)}
	}
	if !env.Success || resp.StatusCode >= 400 {
		return &TransportError{Op: op, URL: target, Status: resp.StatusCode, Msg: env.Error}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Op: op, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("invalid reply: %w", err)}
		}
	}
	return nil
}

// Generator calls POST <base>/generate-schema. base is the API root, for
// example http://localhost:9000/api.
type Generator struct {
	client
}

func NewGenerator(base string, timeout time.Duration) *Generator {
	return &Generator{client: newClient(base, timeout)}
}

// Generate requests a schema for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (schema.Schema, error) {
	var out struct {
		Schema schema.Schema `json:"schema"`
	}
	if err := g.call(ctx, "generate", http.MethodPost, "/generate-schema", map[string]string{"prompt": prompt}, &out); err != nil {
		return nil, err
	}
	if out.Schema == nil {
		out.Schema = schema.Schema{}
	}
	return out.Schema, nil
}

// Library implements library.Service over <base>/schemas.
type Library struct {
	client
}

var _ library.Service = (*Library)(nil)

func NewLibrary(base string, timeout time.Duration) *Library {
	return &Library{client: newClient(base, timeout)}
}

type saveRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Schema      schema.Schema `json:"schema"`
}

// Save stores e remotely and returns it with its assigned ID.
func (l *Library) Save(ctx context.Context, e library.Entry) (library.Entry, error) {
	e, err := library.Normalize(e)
	if err != nil {
		return e, err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := l.call(ctx, "save", http.MethodPost, "/schemas", saveRequest{Name: e.Name, Description: e.Description, Schema: e.Schema}, &out); err != nil {
		return e, err
	}
	e.ID = out.ID
	return e, nil
}

// List returns every saved schema.
func (l *Library) List(ctx context.Context) ([]library.Entry, error) {
	var out struct {
		Schemas []library.Entry `json:"schemas"`
	}
	if err := l.call(ctx, "list", http.MethodGet, "/schemas", nil, &out); err != nil {
		return nil, err
	}
	return out.Schemas, nil
}

// Search returns saved schemas matching q.
func (l *Library) Search(ctx context.Context, q string) ([]library.Entry, error) {
	var out struct {
		Schemas []library.Entry `json:"schemas"`
	}
	if err := l.call(ctx, "search", http.MethodGet, "/schemas?q="+url.QueryEscape(q), nil, &out); err != nil {
		return nil, err
	}
	return out.Schemas, nil
}

// Get returns one saved schema. A 404 maps to library.ErrNotFound.
func (l *Library) Get(ctx context.Context, id string) (library.Entry, error) {
	var out struct {
		Schema library.Entry `json:"schema"`
	}
	err := l.call(ctx, "get", http.MethodGet, "/schemas/"+url.PathEscape(id), nil, &out)
	if err != nil {
		return library.Entry{}, notFound(err)
	}
	return out.Schema, nil
}

// Delete removes a saved schema. A 404 maps to library.ErrNotFound.
func (l *Library) Delete(ctx context.Context, id string) error {
	return notFound(l.call(ctx, "delete", http.MethodDelete, "/schemas/"+url.PathEscape(id), nil, nil))
}

func notFound(err error) error {
	if te, ok := err.(*TransportError); ok && te.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %v", library.ErrNotFound, te)
	}
	return err
}
