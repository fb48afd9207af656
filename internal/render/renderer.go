// ABOUTME: Schema renderer producing the preview and interactive node trees.
// ABOUTME: Dispatches each descriptor to its component and wraps it with editing markers.

package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/dic/internal/components"
	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

// Mode selects how much editing chrome the output carries.
type Mode int

const (
	// Preview renders components only.
	Preview Mode = iota
	// Interactive adds drag handles, delete buttons and edit markers.
	Interactive
)

func (m Mode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "preview"
}

// Editor endpoints referenced from rendered markup.
func SubmitPath(id string) string  { return "/editor/forms/" + id + "/submit" }
func DeletePath(id string) string  { return "/editor/components/" + id + "/delete" }
func ContentPath(id string) string { return "/editor/components/" + id + "/content" }
func AddPath(kind schema.Kind) string {
	return "/editor/add/" + string(kind)
}

// Renderer turns schemas into node trees.
type Renderer struct {
	registry *components.Registry
}

// New returns a renderer dispatching through registry.
func New(registry *components.Registry) *Renderer {
	return &Renderer{registry: registry}
}

// Registry returns the registry the renderer dispatches through.
func (r *Renderer) Registry() *components.Registry {
	return r.registry
}

// Render produces the node tree for s. It never modifies s. book may be nil.
func (r *Renderer) Render(s schema.Schema, mode Mode, book *results.Book) ui.Node {
	root := []ui.Attr{ui.A("id", "preview"), ui.Class("dic-preview space-y-4"), ui.A("data-mode", mode.String())}

	if len(s) == 0 {
		return ui.El("div", root, r.emptyState(mode))
	}

	children := make([]ui.Node, 0, len(s)+2)
	if mode == Interactive {
		children = append(children, r.addBar())
	}
	for i, d := range s {
		children = append(children, r.item(d, i, mode, book))
	}
	if book != nil {
		if panel, ok := ResultsPanel(s, book); ok {
			children = append(children, panel)
		}
	}
	return ui.El("div", root, children...)
}

// Descriptor renders a single descriptor at index i without editing chrome.
func (r *Renderer) Descriptor(d schema.Descriptor, i int, in components.Interaction) ui.Node {
	c, ok := r.registry.Resolve(d.Kind)
	if !ok {
		return Placeholder(d.Kind)
	}
	return c.Render(d.Props, i, in)
}

// Interaction returns the per-instance handle for descriptor id. Without a
// results book the output is static: forms render but cannot be submitted.
func (r *Renderer) Interaction(id string, book *results.Book) components.Interaction {
	if book == nil {
		return components.Static{}
	}
	return &instance{id: id, book: book}
}

func (r *Renderer) item(d schema.Descriptor, i int, mode Mode, book *results.Book) ui.Node {
	body := r.Descriptor(d, i, r.Interaction(d.ID, book))
	if mode != Interactive {
		return ui.El("div", []ui.Attr{ui.Class("dic-item"), ui.A("data-index", strconv.Itoa(i))}, body)
	}

	attrs := []ui.Attr{
		ui.Class("dic-item group relative"),
		ui.A("data-id", d.ID),
		ui.A("data-index", strconv.Itoa(i)),
		ui.A("data-kind", string(d.Kind)),
		ui.A("draggable", "true"),
	}
	if c, ok := r.registry.Resolve(d.Kind); ok {
		if e, ok := c.(components.Editable); ok {
			attrs = append(attrs,
				ui.A("data-edit-prop", e.EditableProp()),
				ui.A("data-edit-url", ContentPath(d.ID)),
				ui.A("title", "Double-click to edit"),
			)
		}
	}

	toolbar := ui.El("div", []ui.Attr{ui.Class("dic-toolbar flex items-center gap-2")},
		ui.El("span", []ui.Attr{ui.Class("dic-handle cursor-move"), ui.A("data-drag-handle", "true"), ui.A("title", "Drag to reorder")}, ui.Text("⋮⋮")),
		ui.El("button", []ui.Attr{
			ui.A("type", "button"),
			ui.Class("dic-delete"),
			ui.A("hx-post", DeletePath(d.ID)),
			ui.A("title", "Delete component"),
		}, ui.Text("×")),
	)
	return ui.El("div", attrs, toolbar, ui.El("div", []ui.Attr{ui.Class("dic-item-body")}, body))
}

func (r *Renderer) emptyState(mode Mode) ui.Node {
	children := []ui.Node{ui.El("p", []ui.Attr{ui.Class("text-slate-400")}, ui.Text("No components"))}
	if mode == Interactive {
		children = append(children, r.addBar())
	}
	return ui.El("div", []ui.Attr{ui.Class("dic-empty text-center py-12"), ui.A("data-empty", "true")}, children...)
}

func (r *Renderer) addBar() ui.Node {
	kinds := r.registry.Kinds()
	buttons := make([]ui.Node, 0, len(kinds))
	for _, k := range kinds {
		buttons = append(buttons, ui.El("button", []ui.Attr{
			ui.A("type", "button"),
			ui.Class("dic-add px-3 py-1 rounded bg-slate-700 text-slate-100"),
			ui.A("data-add", string(k)),
			ui.A("hx-post", AddPath(k)),
		}, ui.Text("+ "+title(string(k)))))
	}
	return ui.El("div", []ui.Attr{ui.Class("dic-add-bar flex gap-2")}, buttons...)
}

// Placeholder is the output for a descriptor whose kind has no component.
func Placeholder(kind schema.Kind) ui.Node {
	return ui.El("div", []ui.Attr{
		ui.Class("dic-unknown p-4 border border-amber-400 bg-amber-50 text-amber-800 rounded"),
		ui.A("data-unknown-kind", string(kind)),
	}, ui.Text(fmt.Sprintf("Unknown component type: %s", kind)))
}

// ResultsPanel lists the stored results positioned against s. It reports
// false when there is nothing to show.
func ResultsPanel(s schema.Schema, book *results.Book) (ui.Node, bool) {
	entries := book.Entries(s)
	if len(entries) == 0 {
		return ui.Node{}, false
	}
	items := make([]ui.Node, 0, len(entries))
	for _, e := range entries {
		items = append(items, resultEntry(e))
	}
	return ui.El("section", []ui.Attr{ui.Class("dic-results mt-6 space-y-2")},
		append([]ui.Node{ui.El("h3", []ui.Attr{ui.Class("text-sm font-semibold text-slate-300")}, ui.Text("Results"))}, items...)...,
	), true
}

func resultEntry(e results.Entry) ui.Node {
	kind := e.Key[:strings.LastIndex(e.Key, "_")]
	heading := ui.El("h4", []ui.Attr{ui.Class("text-xs font-mono text-slate-400")}, ui.Text(strings.ToUpper(kind)+" "+strconv.Itoa(e.Index)))

	var body ui.Node
	switch {
	case e.Result.Error != "":
		body = ui.El("div", []ui.Attr{ui.Class("text-red-400"), ui.A("data-result", "error")}, ui.Text(e.Result.Error))
	case e.Result.Success != "":
		body = ui.El("div", []ui.Attr{ui.Class("text-emerald-400"), ui.A("data-result", "success")}, ui.Text(e.Result.Success))
	default:
		data, _ := json.MarshalIndent(e.Result.Values, "", "  ")
		body = ui.El("pre", []ui.Attr{ui.Class("text-xs text-slate-300"), ui.A("data-result", "values")}, ui.Text(string(data)))
	}
	return ui.El("div", []ui.Attr{ui.Class("dic-result"), ui.A("data-result-key", e.Key), ui.A("data-id", e.ID)}, heading, body)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type instance struct {
	id   string
	book *results.Book
}

func (in *instance) Action() string { return SubmitPath(in.id) }

func (in *instance) Result() (results.Result, bool) { return in.book.Get(in.id) }

func (in *instance) Report(r results.Result) { in.book.Record(in.id, r) }
