// ABOUTME: Pure mutation operations on schema values.
// ABOUTME: Every operation returns a new schema and leaves its input untouched.

package schema

import "fmt"

// IndexError reports a mutation addressed to an index outside the schema.
type IndexError struct {
	Op     string
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [0,%d)", e.Op, e.Index, e.Length)
}

// ImmutableKindError is returned when a patch tries to change a descriptor's kind.
type ImmutableKindError struct {
	Index int
}

func (e *ImmutableKindError) Error() string {
	return fmt.Sprintf("update: component %d: \"type\" cannot be patched", e.Index)
}

func (s Schema) clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

func (s Schema) inRange(i int) bool {
	return i >= 0 && i < len(s)
}

// IndexOf returns the current index of the descriptor with the given ID, or -1.
func (s Schema) IndexOf(id string) int {
	for i, d := range s {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// UpdateAt merges patch into the props of the descriptor at index.
func (s Schema) UpdateAt(index int, patch Props) (Schema, error) {
	if !s.inRange(index) {
		return s, &IndexError{Op: "update", Index: index, Length: len(s)}
	}
	if _, ok := patch["type"]; ok {
		return s, &ImmutableKindError{Index: index}
	}
	out := s.clone()
	out[index] = out[index].With(patch)
	return out, nil
}

// InsertAt inserts d before index. The index is clamped into [0,len(s)], so
// InsertAt(len(s), d) appends.
func (s Schema) InsertAt(index int, d Descriptor) Schema {
	if index < 0 {
		index = 0
	}
	if index > len(s) {
		index = len(s)
	}
	out := make(Schema, 0, len(s)+1)
	out = append(out, s[:index]...)
	out = append(out, d)
	out = append(out, s[index:]...)
	return out
}

// Append is InsertAt(len(s), d).
func (s Schema) Append(d Descriptor) Schema {
	return s.InsertAt(len(s), d)
}

// RemoveAt removes the descriptor at index; every later descriptor shifts down by one.
func (s Schema) RemoveAt(index int) (Schema, error) {
	if !s.inRange(index) {
		return s, &IndexError{Op: "remove", Index: index, Length: len(s)}
	}
	out := make(Schema, 0, len(s)-1)
	out = append(out, s[:index]...)
	out = append(out, s[index+1:]...)
	return out, nil
}

// MoveWithinRange removes the element at from and reinserts it at to. The
// elements between the two positions shift by one; from == to is a no-op.
func (s Schema) MoveWithinRange(from, to int) (Schema, error) {
	if !s.inRange(from) {
		return s, &IndexError{Op: "move", Index: from, Length: len(s)}
	}
	if !s.inRange(to) {
		return s, &IndexError{Op: "move", Index: to, Length: len(s)}
	}
	if from == to {
		return s, nil
	}
	out := s.clone()
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}
