// ABOUTME: Reorder and mutation engine for direct manipulation of the rendered output.
// ABOUTME: Drag gestures, inserts, deletes and in-place edits all publish through the schema model.

package reorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/2389/dic/internal/components"
	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
)

var (
	// ErrGestureCanceled is returned by Drop when the schema changed from
	// elsewhere while the gesture was in progress.
	ErrGestureCanceled = errors.New("drag canceled: the schema changed during the gesture")
	// ErrNotDragging is returned by Over and Drop outside a gesture.
	ErrNotDragging = errors.New("no drag in progress")

	errUnchanged = errors.New("unchanged")
)

// NotFoundError reports a descriptor ID absent from the current schema.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("component %s not found", e.ID)
}

// NotEditableError reports an in-place edit of a kind with no editable prop.
type NotEditableError struct {
	Kind schema.Kind
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("component type %s has no editable content", e.Kind)
}

// State is the gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Engine applies direct-manipulation commands to a model. Commands that
// publish return the resulting change; a command that changes nothing
// returns the zero Change.
type Engine struct {
	model    *schema.Model
	registry *components.Registry
	book     *results.Book

	mu          sync.Mutex
	state       State
	sourceID    string
	sourceIndex int
	version     uint64
	canceled    bool
	unsubscribe func()
}

// New returns an engine bound to model. book may be nil.
func New(model *schema.Model, registry *components.Registry, book *results.Book) *Engine {
	e := &Engine{model: model, registry: registry, book: book}
	e.unsubscribe = model.Subscribe(e.observe)
	return e
}

// Close detaches the engine from its model.
func (e *Engine) Close() {
	e.unsubscribe()
}

func (e *Engine) observe(c schema.Change) {
	if e.book != nil {
		e.book.Prune(c.Schema)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Dragging {
		e.state = Idle
		e.canceled = true
	}
}

// State returns the current gesture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Source returns the dragged descriptor's ID and starting index.
func (e *Engine) Source() (string, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Dragging {
		return "", -1, false
	}
	return e.sourceID, e.sourceIndex, true
}

// Start begins a drag of the descriptor at index.
func (e *Engine) Start(index int) error {
	s := e.model.Get()
	if index < 0 || index >= len(s) {
		return &schema.IndexError{Op: "drag", Index: index, Length: len(s)}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Dragging
	e.sourceID = s[index].ID
	e.sourceIndex = index
	e.version = e.model.Version()
	e.canceled = false
	return nil
}

// Over returns the schema as it would look with the dragged descriptor at
// index. Nothing is published.
func (e *Engine) Over(index int) (schema.Schema, error) {
	e.mu.Lock()
	if e.state != Dragging {
		canceled := e.canceled
		e.mu.Unlock()
		if canceled {
			return e.model.Get(), ErrGestureCanceled
		}
		return e.model.Get(), ErrNotDragging
	}
	id := e.sourceID
	e.mu.Unlock()

	s := e.model.Get()
	return s.MoveWithinRange(s.IndexOf(id), index)
}

// Drop ends the gesture. When ok is false (no valid target) or index equals
// the source position nothing is published.
func (e *Engine) Drop(index int, ok bool) (schema.Change, error) {
	e.mu.Lock()
	if e.state != Dragging {
		canceled := e.canceled
		e.canceled = false
		e.mu.Unlock()
		if canceled {
			return schema.Change{}, ErrGestureCanceled
		}
		return schema.Change{}, ErrNotDragging
	}
	id, version := e.sourceID, e.version
	e.state = Idle
	e.mu.Unlock()

	if e.model.Version() != version {
		return schema.Change{}, ErrGestureCanceled
	}
	if !ok {
		return schema.Change{}, nil
	}

	s := e.model.Get()
	from := s.IndexOf(id)
	if from == index {
		return schema.Change{}, nil
	}
	return e.model.Apply(schema.SourceDrag, func(s schema.Schema) (schema.Schema, error) {
		return s.MoveWithinRange(s.IndexOf(id), index)
	})
}

// Cancel abandons the gesture without publishing.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Idle
	e.canceled = false
}

// Add appends the default instance of kind.
func (e *Engine) Add(kind schema.Kind) (schema.Change, error) {
	d, ok := e.registry.DefaultInstance(kind)
	if !ok {
		return schema.Change{}, &components.UnknownKindError{Kind: kind}
	}
	return e.model.Apply(schema.SourceAdd, func(s schema.Schema) (schema.Schema, error) {
		return s.Append(d), nil
	})
}

// Insert places d before index; the index is clamped into range.
func (e *Engine) Insert(index int, d schema.Descriptor) schema.Change {
	return e.model.Replace(e.model.Get().InsertAt(index, d), schema.SourceAdd)
}

// Delete removes the descriptor with the given ID.
func (e *Engine) Delete(id string) (schema.Change, error) {
	return e.model.Apply(schema.SourceDelete, func(s schema.Schema) (schema.Schema, error) {
		idx := s.IndexOf(id)
		if idx < 0 {
			return s, &NotFoundError{ID: id}
		}
		return s.RemoveAt(idx)
	})
}

// EditContent commits an in-place edit of the descriptor's editable prop.
// An unchanged value publishes nothing.
func (e *Engine) EditContent(id, value string) (schema.Change, error) {
	s := e.model.Get()
	idx := s.IndexOf(id)
	if idx < 0 {
		return schema.Change{}, &NotFoundError{ID: id}
	}
	c, ok := e.registry.Resolve(s[idx].Kind)
	if !ok {
		return schema.Change{}, &components.UnknownKindError{Kind: s[idx].Kind}
	}
	editable, ok := c.(components.Editable)
	if !ok {
		return schema.Change{}, &NotEditableError{Kind: s[idx].Kind}
	}
	prop := editable.EditableProp()
	if current, ok := s[idx].Props[prop].(string); ok && current == value {
		return schema.Change{}, nil
	}
	return e.UpdateProps(id, schema.Props{prop: value})
}

// UpdateProps merges patch into the descriptor's props.
func (e *Engine) UpdateProps(id string, patch schema.Props) (schema.Change, error) {
	return e.apply(id, func(s schema.Schema, idx int) (schema.Schema, error) {
		return s.UpdateAt(idx, patch)
	})
}

// AddField appends a field to the form with the given ID.
func (e *Engine) AddField(id string, f schema.Field) (schema.Change, error) {
	return e.apply(id, func(s schema.Schema, idx int) (schema.Schema, error) {
		return s.AppendField(idx, f)
	})
}

// UpdateField merges patch into one field of the form with the given ID.
func (e *Engine) UpdateField(id string, field int, patch map[string]any) (schema.Change, error) {
	return e.apply(id, func(s schema.Schema, idx int) (schema.Schema, error) {
		return s.UpdateField(idx, field, patch)
	})
}

// RemoveField deletes one field of the form with the given ID.
func (e *Engine) RemoveField(id string, field int) (schema.Change, error) {
	return e.apply(id, func(s schema.Schema, idx int) (schema.Schema, error) {
		return s.RemoveField(idx, field)
	})
}

func (e *Engine) apply(id string, fn func(schema.Schema, int) (schema.Schema, error)) (schema.Change, error) {
	change, err := e.model.Apply(schema.SourceEdit, func(s schema.Schema) (schema.Schema, error) {
		idx := s.IndexOf(id)
		if idx < 0 {
			return s, &NotFoundError{ID: id}
		}
		next, err := fn(s, idx)
		if err != nil {
			return s, err
		}
		if schema.Equal(s, next) {
			return s, errUnchanged
		}
		return next, nil
	})
	if errors.Is(err, errUnchanged) {
		return schema.Change{}, nil
	}
	return change, err
}
