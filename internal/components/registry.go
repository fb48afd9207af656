// ABOUTME: Component registry mapping descriptor kinds to rendering strategies.
// ABOUTME: Built-in kinds dispatch through a closed switch; extensions register at startup.

package components

import (
	"fmt"
	"sort"
	"sync"

	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

// Built-in kinds.
const (
	KindForm  schema.Kind = "form"
	KindText  schema.Kind = "text"
	KindImage schema.Kind = "image"
)

var builtinKinds = []schema.Kind{KindForm, KindText, KindImage}

// Interaction is the per-instance handle a component renders against.
type Interaction interface {
	// Action is the submission endpoint for the instance, empty when the
	// output is not interactive.
	Action() string
	// Result is the latest result reported for the instance.
	Result() (results.Result, bool)
	// Report records a new result for the instance.
	Report(results.Result)
}

// Component renders one kind of descriptor. Render must be pure.
type Component interface {
	Render(props schema.Props, index int, in Interaction) ui.Node
	Default() schema.Props
}

// Submitter is implemented by components that accept submitted values.
type Submitter interface {
	Submit(props schema.Props, values map[string]any) results.Result
}

// Editable is implemented by components with a prop editable in place.
type Editable interface {
	EditableProp() string
}

// UnknownKindError reports a kind with no registered component.
type UnknownKindError struct {
	Kind schema.Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown component type: %s", e.Kind)
}

// Registry resolves kinds to components.
type Registry struct {
	mu         sync.RWMutex
	extensions map[schema.Kind]Component
	form       Component
	text       Component
	image      Component
}

// NewRegistry returns a registry holding the built-in components.
func NewRegistry() *Registry {
	return &Registry{
		extensions: make(map[schema.Kind]Component),
		form:       NewForm(),
		text:       NewText(),
		image:      NewImage(),
	}
}

// Register adds an extension kind. Registering a kind twice, or a built-in
// kind, is a programming error and panics.
func (r *Registry) Register(kind schema.Kind, c Component) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isBuiltin(kind) {
		panic(fmt.Sprintf("component %q is built in", kind))
	}
	if _, exists := r.extensions[kind]; exists {
		panic(fmt.Sprintf("component %q already registered", kind))
	}
	r.extensions[kind] = c
}

// Resolve returns the component for kind.
func (r *Registry) Resolve(kind schema.Kind) (Component, bool) {
	switch kind {
	case KindForm:
		return r.form, true
	case KindText:
		return r.text, true
	case KindImage:
		return r.image, true
	default:
		r.mu.RLock()
		defer r.mu.RUnlock()
		c, ok := r.extensions[kind]
		return c, ok
	}
}

// Lookup is Resolve with an *UnknownKindError for absent kinds.
func (r *Registry) Lookup(kind schema.Kind) (Component, error) {
	c, ok := r.Resolve(kind)
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	return c, nil
}

// DefaultInstance returns a fresh descriptor of kind with its default props.
func (r *Registry) DefaultInstance(kind schema.Kind) (schema.Descriptor, bool) {
	c, ok := r.Resolve(kind)
	if !ok {
		return schema.Descriptor{}, false
	}
	return schema.New(kind, c.Default()), true
}

// Kinds returns the built-in kinds followed by the extension kinds in name order.
func (r *Registry) Kinds() []schema.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]schema.Kind, 0, len(builtinKinds)+len(r.extensions))
	kinds = append(kinds, builtinKinds...)
	ext := make([]schema.Kind, 0, len(r.extensions))
	for k := range r.extensions {
		ext = append(ext, k)
	}
	sort.Slice(ext, func(i, j int) bool { return ext[i] < ext[j] })
	return append(kinds, ext...)
}

func isBuiltin(kind schema.Kind) bool {
	for _, k := range builtinKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Static is an Interaction for non-interactive output.
type Static struct{}

func (Static) Action() string                 { return "" }
func (Static) Result() (results.Result, bool) { return results.Result{}, false }
func (Static) Report(results.Result)          {}
