// ABOUTME: Saved schema storage: the SQLite implementation of the schema library.
// ABOUTME: Documents are stored as canonical JSON text and re-parsed on read.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

var _ library.Service = (*Store)(nil)

// Save inserts e, or replaces the saved schema with the same ID. A new entry
// gets a fresh ID and creation time.
func (s *Store) Save(ctx context.Context, e library.Entry) (library.Entry, error) {
	e, err := library.Normalize(e)
	if err != nil {
		return e, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	doc, err := schema.Marshal(e.Schema)
	if err != nil {
		return e, fmt.Errorf("encode schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemas (id, name, description, document, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			document = excluded.document
	`, e.ID, e.Name, e.Description, string(doc), e.CreatedAt)
	if err != nil {
		return e, fmt.Errorf("save schema: %w", err)
	}
	return e, nil
}

// List returns every saved schema, newest first.
func (s *Store) List(ctx context.Context) ([]library.Entry, error) {
	return s.querySchemas(ctx, `SELECT id, name, COALESCE(description, ''), document, created_at
		FROM schemas ORDER BY created_at DESC, name`)
}

// Search returns saved schemas whose name or description contains q.
func (s *Store) Search(ctx context.Context, q string) ([]library.Entry, error) {
	pattern := "%" + escapeSQLLike(q) + "%"
	return s.querySchemas(ctx, `SELECT id, name, COALESCE(description, ''), document, created_at
		FROM schemas
		WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, name`, pattern, pattern)
}

// Get returns one saved schema, or library.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (library.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, COALESCE(description, ''), document, created_at
		FROM schemas WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Entry{}, library.ErrNotFound
	}
	return e, err
}

// Delete removes a saved schema, or returns library.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM schemas WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return library.ErrNotFound
	}
	return nil
}

func (s *Store) querySchemas(ctx context.Context, query string, args ...any) ([]library.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []library.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (library.Entry, error) {
	var e library.Entry
	var doc string
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &doc, &e.CreatedAt); err != nil {
		return e, err
	}
	parsed, err := schema.Parse(doc)
	if err != nil {
		return e, fmt.Errorf("saved schema %s: %w", e.ID, err)
	}
	e.Schema = parsed
	return e, nil
}
