// ABOUTME: Deep structural equality between schemas.
// ABOUTME: This is the gate that stops buffer and model updates from re-triggering each other.

package schema

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var equalOpts = cmp.Options{
	cmpopts.IgnoreFields(Descriptor{}, "ID"),
	cmpopts.EquateEmpty(),
	cmp.Transformer("normalize", func(p Props) map[string]any { return map[string]any(Normalize(p)) }),
}

// Equal reports whether a and b describe the same document. Identity is
// ignored; nil and empty collections are equal, and props compare by their
// JSON value so an int 400 equals a parsed 400.
func Equal(a, b Schema) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Diff returns a human-readable difference between a and b, empty when Equal.
func Diff(a, b Schema) string {
	return cmp.Diff(a, b, equalOpts)
}
