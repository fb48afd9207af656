// ABOUTME: Canonical JSON serialization and parsing of schemas.
// ABOUTME: Marshal is the buffer format; Parse reports descriptive, positioned errors.

package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Indent is the fixed indentation of the canonical serialization.
const Indent = "  "

// ParseError describes text that is not a valid schema document.
// Line and Column are 1-based and zero when no position is known.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Invalid JSON: %s (line %d, column %d)", e.Msg, e.Line, e.Column)
	}
	return "Invalid schema: " + e.Msg
}

// Marshal returns the canonical serialization of s: a JSON array with
// "type" first in every element, remaining keys sorted, two-space indent.
func Marshal(s Schema) ([]byte, error) {
	if s == nil {
		s = Schema{}
	}
	compact, err := encodeValue([]Descriptor(s))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", Indent); err != nil {
		return nil, fmt.Errorf("indent schema: %w", err)
	}
	return out.Bytes(), nil
}

// MustMarshal is Marshal for schemas known to be valid, returning "[]" on failure.
func MustMarshal(s Schema) string {
	data, err := Marshal(s)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Parse reads a schema document. Empty text is the empty schema. The
// returned descriptors have no IDs.
func Parse(text string) (Schema, error) {
	if strings.TrimSpace(text) == "" {
		return Schema{}, nil
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, positionedError(text, err)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, &ParseError{Msg: "schema must be a JSON array"}
	}

	out := make(Schema, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ParseError{Msg: fmt.Sprintf("component %d must be an object", i)}
		}
		desc, err := descriptorFromObject(obj)
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("component %d: %v", i, err)}
		}
		out = append(out, desc)
	}
	return out, nil
}

// FromValue converts an already-decoded document (for example from YAML)
// into a schema by passing it through the JSON codec.
func FromValue(v any) (Schema, error) {
	data, err := encodeValue(v)
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	return Parse(string(data))
}

func positionedError(text string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := position(text, syntaxErr.Offset)
		return &ParseError{Line: line, Column: col, Msg: syntaxErr.Error()}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := position(text, typeErr.Offset)
		return &ParseError{Line: line, Column: col, Msg: typeErr.Error()}
	}
	return &ParseError{Msg: err.Error()}
}

// position converts a byte offset into a 1-based line and column.
func position(text string, offset int64) (int, int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	line, col := 1, 1
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func sortedKeys(p Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
