// ABOUTME: Tests for saved schema storage.
// ABOUTME: Covers save, list order, lookup, search, overwrite, and delete.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

func contactForm() schema.Schema {
	return schema.Schema{
		schema.New("text", schema.Props{"content": "Contact us", "variant": "h2"}),
		schema.New("form", schema.Props{
			"fields": []any{
				map[string]any{"label": "Email", "type": "email", "required": true},
			},
			"submitText": "Send",
		}),
	}
}

func TestSchemas_SaveAndGet(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, library.Entry{Name: "  Contact  ", Description: "form", Schema: contactForm()})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("Save() did not assign an ID")
	}
	if saved.Name != "Contact" {
		t.Errorf("Name = %q, want trimmed %q", saved.Name, "Contact")
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !schema.Equal(got.Schema, contactForm()) {
		t.Errorf("stored schema differs: %s", schema.Diff(contactForm(), got.Schema))
	}
	if diff := cmp.Diff(saved.CreatedAt.Unix(), got.CreatedAt.Unix()); diff != "" {
		t.Errorf("CreatedAt mismatch (-saved +got):\n%s", diff)
	}
}

func TestSchemas_RejectsMissingName(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.Save(context.Background(), library.Entry{Name: "   ", Schema: contactForm()})
	if !errors.Is(err, library.ErrMissingName) {
		t.Fatalf("Save() error = %v, want ErrMissingName", err)
	}
}

func TestSchemas_ListNewestFirst(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, name := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, library.Entry{Name: name, Schema: schema.Schema{}, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"third", "second", "first"}, names); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemas_ListEmpty(t *testing.T) {
	s := setupTestDB(t)

	entries, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", entries)
	}
}

func TestSchemas_SaveOverwritesByID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, library.Entry{Name: "draft", Schema: schema.Schema{}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved.Name = "final"
	saved.Schema = contactForm()
	if _, err := s.Save(ctx, saved); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	if entries[0].Name != "final" || len(entries[0].Schema) != 2 {
		t.Errorf("entry = %q with %d components, want final with 2", entries[0].Name, len(entries[0].Schema))
	}
}

func TestSchemas_Search(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, e := range []library.Entry{
		{Name: "Contact form", Description: "email and message"},
		{Name: "Landing", Description: "hero and call_to_action"},
		{Name: "Pricing", Description: "100% plans"},
	} {
		if _, err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"contact", 1},
		{"and", 2},
		{"call_to", 1},
		{"%", 1},
		{"_", 1},
		{"missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) returned %d entries, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestSchemas_Delete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, library.Entry{Name: "gone", Schema: contactForm()})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, saved.ID); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, saved.ID); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
