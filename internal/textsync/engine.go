// ABOUTME: Keeps the textual JSON buffer and the schema model in step without feedback loops.
// ABOUTME: Buffer edits publish only when they parse and differ from the model.

package textsync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/2389/dic/internal/schema"
)

// ErrCannotFormat is returned by Format when the buffer does not parse.
var ErrCannotFormat = errors.New("cannot format invalid JSON")

// Engine owns the editor buffer for one model.
type Engine struct {
	model *schema.Model

	mu          sync.Mutex
	buffer      string
	err         error
	unsubscribe func()
}

// New returns an engine whose buffer shows the model's current schema.
func New(model *schema.Model) *Engine {
	e := &Engine{
		model:  model,
		buffer: schema.MustMarshal(model.Get()),
	}
	e.unsubscribe = model.Subscribe(e.observe)
	return e
}

// Close detaches the engine from its model.
func (e *Engine) Close() {
	e.unsubscribe()
}

// observe rewrites the buffer for every publication that did not come from it.
func (e *Engine) observe(c schema.Change) {
	if c.Source == schema.SourceText {
		return
	}
	text := schema.MustMarshal(c.Schema)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = text
	e.err = nil
}

// Buffer returns the current buffer text.
func (e *Engine) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Err returns the parse error of the current buffer, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Edit stores text as the buffer. When it parses and differs from the model
// it is published with SourceText; otherwise nothing is published. A parse
// failure is recorded and returned.
func (e *Engine) Edit(text string) (schema.Change, error) {
	parsed, err := schema.Parse(text)

	e.mu.Lock()
	e.buffer = text
	e.err = err
	e.mu.Unlock()

	if err != nil {
		return schema.Change{}, err
	}
	if schema.Equal(parsed, e.model.Get()) {
		return schema.Change{}, nil
	}
	return e.model.Replace(parsed, schema.SourceText), nil
}

// Format replaces the buffer with the canonical serialization of its parse
// and republishes it.
func (e *Engine) Format() (schema.Change, error) {
	parsed, err := schema.Parse(e.Buffer())
	if err != nil {
		return schema.Change{}, fmt.Errorf("%w: %v", ErrCannotFormat, err)
	}
	return e.model.Replace(parsed, schema.SourceFormat), nil
}

// Clear empties the buffer and the model.
func (e *Engine) Clear() schema.Change {
	return e.model.Replace(schema.Schema{}, schema.SourceClear)
}
