// ABOUTME: Renderable node tree produced by component strategies.
// ABOUTME: Nodes are plain values; HTML is written with every text and attribute escaped.

package ui

import (
	"html"
	"io"
	"strings"
)

// Attr is one HTML attribute. Boolean attributes use an empty Value with Bool set.
type Attr struct {
	Key   string
	Value string
	Bool  bool
}

// Node is an element or, when Tag is empty, a text node.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []Node
	Text     string
}

var voidElements = map[string]bool{
	"img": true, "input": true, "br": true, "hr": true, "meta": true, "link": true,
}

// El builds an element node.
func El(tag string, attrs []Attr, children ...Node) Node {
	return Node{Tag: tag, Attrs: attrs, Children: children}
}

// Text builds a text node.
func Text(s string) Node {
	return Node{Text: s}
}

// A builds a valued attribute.
func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// B builds a boolean attribute; it is omitted when on is false.
func B(key string, on bool) Attr {
	return Attr{Key: key, Bool: on}
}

// Class is A("class", ...) for the common case.
func Class(value string) Attr {
	return A("class", value)
}

// Attr returns the value of the named attribute.
func (n Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key != key {
			continue
		}
		if a.Bool {
			return "", true
		}
		return a.Value, a.Value != ""
	}
	return "", false
}

// HasAttr reports whether the attribute is present (boolean attributes only when on).
func (n Node) HasAttr(key string) bool {
	for _, a := range n.Attrs {
		if a.Key != key {
			continue
		}
		if a.Value == "" && !a.Bool {
			return false
		}
		return true
	}
	return false
}

// Render writes the node as HTML.
func (n Node) Render(w io.Writer) error {
	var sb strings.Builder
	n.write(&sb)
	_, err := io.WriteString(w, sb.String())
	return err
}

// HTML returns the node rendered as a string.
func (n Node) HTML() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n Node) write(sb *strings.Builder) {
	if n.Tag == "" {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}
	sb.WriteString("<")
	sb.WriteString(n.Tag)
	for _, a := range n.Attrs {
		if a.Bool {
			sb.WriteString(" ")
			sb.WriteString(a.Key)
			continue
		}
		if a.Value == "" {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Value))
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	if voidElements[n.Tag] {
		return
	}
	if n.Text != "" {
		sb.WriteString(html.EscapeString(n.Text))
	}
	for _, c := range n.Children {
		c.write(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteString(">")
}

// TextContent returns the concatenated text of the node and its descendants.
func (n Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(x Node) bool {
		sb.WriteString(x.Text)
		return true
	})
	return sb.String()
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n Node) Walk(fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns every descendant (including n) matching pred.
func (n Node) Find(pred func(Node) bool) []Node {
	var out []Node
	n.Walk(func(x Node) bool {
		if pred(x) {
			out = append(out, x)
		}
		return true
	})
	return out
}

// ByTag matches elements with the given tag.
func ByTag(tag string) func(Node) bool {
	return func(n Node) bool { return n.Tag == tag }
}

// ByAttr matches elements carrying attr=value.
func ByAttr(key, value string) func(Node) bool {
	return func(n Node) bool {
		v, ok := n.Attr(key)
		return ok && v == value
	}
}
