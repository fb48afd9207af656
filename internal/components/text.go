// ABOUTME: Text component: headings, paragraphs and inline spans.
// ABOUTME: Content is shown literally; markup in it is escaped, never interpreted.

package components

import (
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

var textVariants = map[string]string{
	"h1":   "text-4xl font-bold text-slate-100",
	"h2":   "text-3xl font-bold text-slate-100",
	"h3":   "text-2xl font-bold text-slate-100",
	"h4":   "text-xl font-semibold text-slate-200",
	"h5":   "text-lg font-semibold text-slate-200",
	"h6":   "text-base font-semibold text-slate-200",
	"p":    "text-base text-slate-300",
	"span": "text-base text-slate-300",
}

// Text renders text descriptors.
type Text struct{}

// NewText returns the text component.
func NewText() *Text { return &Text{} }

func (t *Text) Default() schema.Props {
	return schema.Props{"content": "New Text Component", "variant": "p"}
}

func (t *Text) EditableProp() string { return "content" }

func (t *Text) Render(props schema.Props, index int, in Interaction) ui.Node {
	variant := props.String("variant", "p")
	classes, ok := textVariants[variant]
	if !ok {
		variant = "p"
		classes = textVariants["p"]
	}
	if extra := props.String("className", ""); extra != "" {
		classes += " " + extra
	}
	return ui.El(variant, []ui.Attr{ui.Class(classes)}, ui.Text(props.String("content", "")))
}
