// ABOUTME: Schema state container: the single source of truth for one editor.
// ABOUTME: Publishes changes with a source tag and version to synchronous subscribers.

package schema

import "sync"

// Source tags why the schema changed. Observers use it to decide whether a
// change originated from themselves.
type Source string

const (
	SourceInit     Source = "init"
	SourceText     Source = "text"
	SourceFormat   Source = "format"
	SourceClear    Source = "clear"
	SourceDrag     Source = "drag"
	SourceEdit     Source = "edit"
	SourceAdd      Source = "add"
	SourceDelete   Source = "delete"
	SourceGenerate Source = "generate"
	SourceLoad     Source = "load"
	SourceImport   Source = "import"
	SourceFile     Source = "file"
)

// SameDocument reports whether a change from source is an edit of the
// document already published rather than a different document.
func (src Source) SameDocument() bool {
	switch src {
	case SourceText, SourceFormat, SourceFile:
		return true
	}
	return false
}

// Change is one publication of the Model.
type Change struct {
	Schema   Schema
	Previous Schema
	Source   Source
	Version  uint64
}

// Subscriber observes every publication, in publication order.
type Subscriber func(Change)

// Model holds the canonical schema. Mutation happens only through Replace
// and Apply; readers get the current value from Get.
type Model struct {
	mu      sync.RWMutex
	current Schema
	version uint64
	subs    map[int]Subscriber
	order   []int
	nextSub int
}

// NewModel returns a Model holding initial, with IDs assigned.
func NewModel(initial Schema) *Model {
	return &Model{
		current: Reconcile(nil, initial, false),
		subs:    map[int]Subscriber{},
	}
}

// Get returns the current schema. Callers must treat it as read-only.
func (m *Model) Get() Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Version returns the number of publications so far.
func (m *Model) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Replace publishes next as the canonical schema. IDs of descriptors that
// survive from the current schema are carried over; only edits of the same
// document match descriptors by position.
func (m *Model) Replace(next Schema, source Source) Change {
	m.mu.Lock()
	prev := m.current
	reconciled := Reconcile(prev, next, source.SameDocument())
	m.current = reconciled
	m.version++
	change := Change{Schema: reconciled, Previous: prev, Source: source, Version: m.version}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return change
}

// Apply runs fn against the current schema and publishes its result. When fn
// fails nothing is published and the error is returned.
func (m *Model) Apply(source Source, fn func(Schema) (Schema, error)) (Change, error) {
	next, err := fn(m.Get())
	if err != nil {
		return Change{}, err
	}
	return m.Replace(next, source), nil
}

// Subscribe registers fn and returns a function that removes it.
func (m *Model) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
		for i, o := range m.order {
			if o == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

func (m *Model) subscribersLocked() []Subscriber {
	out := make([]Subscriber, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.subs[id])
	}
	return out
}
