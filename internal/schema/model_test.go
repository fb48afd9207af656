// ABOUTME: Tests for the schema state container and ID reconciliation.
// ABOUTME: Verifies publication order, failed applies, and identity carry-over.

package schema

import (
	"errors"
	"testing"
)

func TestModel_ReplaceNotifiesInOrder(t *testing.T) {
	m := NewModel(nil)
	var seen []string
	m.Subscribe(func(c Change) { seen = append(seen, "first:"+string(c.Source)) })
	cancel := m.Subscribe(func(c Change) { seen = append(seen, "second:"+string(c.Source)) })

	change := m.Replace(Schema{{Kind: "text", Props: Props{"content": "x"}}}, SourceGenerate)
	if change.Version != 1 {
		t.Errorf("Version = %d, want 1", change.Version)
	}
	if change.Schema[0].ID == "" {
		t.Error("Replace did not assign an ID")
	}

	cancel()
	m.Replace(nil, SourceClear)

	want := []string{"first:generate", "second:generate", "first:clear"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestModel_ApplyFailureDoesNotPublish(t *testing.T) {
	m := NewModel(Schema{{Kind: "text"}})
	published := false
	m.Subscribe(func(Change) { published = true })

	_, err := m.Apply(SourceEdit, func(s Schema) (Schema, error) {
		return s.UpdateAt(4, Props{"content": "x"})
	})
	var ie *IndexError
	if !errors.As(err, &ie) {
		t.Fatalf("Apply() error = %v, want *IndexError", err)
	}
	if published {
		t.Error("failed Apply published a change")
	}
	if m.Version() != 0 {
		t.Errorf("Version = %d, want 0", m.Version())
	}
}

func TestModel_SubscriberMayReadModel(t *testing.T) {
	m := NewModel(nil)
	var length int
	m.Subscribe(func(Change) { length = len(m.Get()) })
	m.Replace(Schema{{Kind: "text"}, {Kind: "image"}}, SourceLoad)
	if length != 2 {
		t.Errorf("subscriber saw %d descriptors, want 2", length)
	}
}

func TestReconcile(t *testing.T) {
	prev := Schema{
		{ID: "a", Kind: "text", Props: Props{"content": "A"}},
		{ID: "b", Kind: "text", Props: Props{"content": "B"}},
		{ID: "c", Kind: "form", Props: Props{"submitText": "Go"}},
	}

	t.Run("reordered content keeps identity", func(t *testing.T) {
		next := Schema{
			{Kind: "form", Props: Props{"submitText": "Go"}},
			{Kind: "text", Props: Props{"content": "A"}},
			{Kind: "text", Props: Props{"content": "B"}},
		}
		got := Reconcile(prev, next, false)
		want := []string{"c", "a", "b"}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
			}
		}
	})

	t.Run("edited content keeps positional identity", func(t *testing.T) {
		next := Schema{
			{Kind: "text", Props: Props{"content": "A!"}},
			{Kind: "text", Props: Props{"content": "B"}},
			{Kind: "image", Props: Props{"src": "x"}},
		}
		got := Reconcile(prev, next, true)
		if got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("ids = %q, %q, want a, b", got[0].ID, got[1].ID)
		}
		if got[2].ID == "c" || got[2].ID == "" {
			t.Errorf("kind change should get a fresh id, got %q", got[2].ID)
		}
	})

	t.Run("duplicate ids are replaced", func(t *testing.T) {
		next := Schema{
			{ID: "a", Kind: "text", Props: Props{"content": "A"}},
			{ID: "a", Kind: "text", Props: Props{"content": "A"}},
		}
		got := Reconcile(prev, next, true)
		if got[0].ID == got[1].ID {
			t.Errorf("duplicate ids survived: %q", got[0].ID)
		}
	})

	t.Run("different document only matches identical content", func(t *testing.T) {
		next := Schema{
			{Kind: "text", Props: Props{"content": "Other"}},
			{Kind: "text", Props: Props{"content": "B"}},
			{Kind: "form", Props: Props{"submitText": "Send"}},
		}
		got := Reconcile(prev, next, false)
		if got[0].ID == "a" || got[0].ID == "" {
			t.Errorf("unrelated text took id %q", got[0].ID)
		}
		if got[1].ID != "b" {
			t.Errorf("identical text id = %q, want b", got[1].ID)
		}
		if got[2].ID == "c" {
			t.Error("unrelated form took the previous form's id")
		}
	})

	t.Run("props are normalized", func(t *testing.T) {
		got := Reconcile(nil, Schema{{Kind: "image", Props: Props{"width": 400}}}, false)
		if w, ok := got[0].Props["width"].(float64); !ok || w != 400 {
			t.Errorf("width = %#v, want float64 400", got[0].Props["width"])
		}
	})
}

func TestModel_ReplaceBySource(t *testing.T) {
	tests := []struct {
		source   Source
		keepsIDs bool
	}{
		{SourceText, true},
		{SourceFormat, true},
		{SourceFile, true},
		{SourceGenerate, false},
		{SourceLoad, false},
		{SourceImport, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			m := NewModel(Schema{{Kind: "form", Props: Props{"submitText": "Old"}}})
			oldID := m.Get()[0].ID
			m.Replace(Schema{{Kind: "form", Props: Props{"submitText": "New"}}}, tt.source)
			if kept := m.Get()[0].ID == oldID; kept != tt.keepsIDs {
				t.Errorf("kept id = %v, want %v", kept, tt.keepsIDs)
			}
		})
	}
}
