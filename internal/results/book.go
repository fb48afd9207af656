// ABOUTME: Interaction results reported by rendered component instances.
// ABOUTME: Results are keyed by durable descriptor ID and shown under kind_index display keys.

package results

import (
	"fmt"
	"sync"

	"github.com/2389/dic/internal/schema"
)

// Result is the outcome of one interaction (a form submission).
type Result struct {
	Values  map[string]any `json:"values,omitempty"`
	Success string         `json:"success,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Entry is a result positioned against the current schema.
type Entry struct {
	Key    string
	ID     string
	Index  int
	Result Result
}

// Key returns the display key of the descriptor at index: "<kind>_<index>".
func Key(kind schema.Kind, index int) string {
	return fmt.Sprintf("%s_%d", kind, index)
}

// Book stores the latest result per descriptor.
type Book struct {
	mu      sync.Mutex
	byID    map[string]Result
	ordered []string
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{byID: map[string]Result{}}
}

// Record stores r as the latest result for the descriptor id.
func (b *Book) Record(id string, r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byID[id]; !ok {
		b.ordered = append(b.ordered, id)
	}
	b.byID[id] = r
}

// Get returns the result recorded for id.
func (b *Book) Get(id string) (Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.byID[id]
	return r, ok
}

// Prune discards results for descriptors no longer present in s and returns
// how many were dropped.
func (b *Book) Prune(s schema.Schema) int {
	live := make(map[string]bool, len(s))
	for _, d := range s {
		live[d.ID] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	kept := b.ordered[:0]
	for _, id := range b.ordered {
		if live[id] {
			kept = append(kept, id)
			continue
		}
		delete(b.byID, id)
		dropped++
	}
	b.ordered = kept
	return dropped
}

// Clear discards every result.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID = map[string]Result{}
	b.ordered = nil
}

// Len returns the number of stored results.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byID)
}

// Entries positions the stored results against s, in recording order.
// Results whose descriptor is absent from s are skipped.
func (b *Book) Entries(s schema.Schema) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Entry
	for _, id := range b.ordered {
		idx := s.IndexOf(id)
		if idx < 0 {
			continue
		}
		out = append(out, Entry{
			Key:    Key(s[idx].Kind, idx),
			ID:     id,
			Index:  idx,
			Result: b.byID[id],
		})
	}
	return out
}
