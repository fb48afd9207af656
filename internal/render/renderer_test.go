// ABOUTME: Tests for schema rendering in preview and interactive modes.
// ABOUTME: Covers dispatch, placeholders, empty state, markers and the results panel.

package render

import (
	"strings"
	"testing"

	"github.com/2389/dic/internal/components"
	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

func newRenderer() *Renderer {
	return New(components.NewRegistry())
}

func TestRender_HeadingFromBuffer(t *testing.T) {
	s, err := schema.Parse(`[{"type":"text","content":"Hi","variant":"h1"}]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	n := newRenderer().Render(s, Preview, nil)
	h1 := n.Find(ui.ByTag("h1"))
	if len(h1) != 1 || h1[0].TextContent() != "Hi" {
		t.Errorf("h1 = %+v", h1)
	}
}

func TestRender_UnknownKindPlaceholder(t *testing.T) {
	s := schema.Schema{schema.New("bogus", schema.Props{"x": 1})}
	before := schema.MustMarshal(s)

	for _, mode := range []Mode{Preview, Interactive} {
		n := newRenderer().Render(s, mode, nil)
		if !strings.Contains(n.TextContent(), "Unknown component type: bogus") {
			t.Errorf("%s: placeholder missing in %q", mode, n.TextContent())
		}
	}
	if schema.MustMarshal(s) != before {
		t.Error("Render modified the schema")
	}
}

func TestRender_EmptyState(t *testing.T) {
	tests := []struct {
		mode        Mode
		wantButtons int
	}{
		{Preview, 0},
		{Interactive, 3},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			n := newRenderer().Render(nil, tt.mode, nil)
			if !strings.Contains(n.TextContent(), "No components") {
				t.Error("empty message missing")
			}
			buttons := n.Find(func(x ui.Node) bool { return x.HasAttr("data-add") })
			if len(buttons) != tt.wantButtons {
				t.Errorf("add buttons = %d, want %d", len(buttons), tt.wantButtons)
			}
			if tt.wantButtons > 0 && buttons[0].TextContent() != "+ Form" {
				t.Errorf("first button = %q", buttons[0].TextContent())
			}
		})
	}
}

func TestRender_InteractiveMarkers(t *testing.T) {
	reg := components.NewRegistry()
	text, _ := reg.DefaultInstance(components.KindText)
	form, _ := reg.DefaultInstance(components.KindForm)
	s := schema.Schema{form, text}

	n := New(reg).Render(s, Interactive, nil)
	items := n.Find(ui.ByAttr("draggable", "true"))
	if len(items) != 2 {
		t.Fatalf("draggable items = %d, want 2", len(items))
	}
	for i, item := range items {
		if id, _ := item.Attr("data-id"); id != s[i].ID {
			t.Errorf("item %d data-id = %q, want %q", i, id, s[i].ID)
		}
		if idx, _ := item.Attr("data-index"); idx != []string{"0", "1"}[i] {
			t.Errorf("item %d data-index = %q", i, idx)
		}
		if del := item.Find(ui.ByAttr("hx-post", DeletePath(s[i].ID))); len(del) != 1 {
			t.Errorf("item %d has no delete button", i)
		}
	}
	if items[0].HasAttr("data-edit-prop") {
		t.Error("form should not be double-click editable")
	}
	if prop, _ := items[1].Attr("data-edit-prop"); prop != "content" {
		t.Errorf("text data-edit-prop = %q", prop)
	}

	forms := n.Find(ui.ByTag("form"))
	if action, _ := forms[0].Attr("action"); action != SubmitPath(form.ID) {
		t.Errorf("form action = %q", action)
	}

	preview := New(reg).Render(s, Preview, nil)
	if got := preview.Find(ui.ByAttr("draggable", "true")); len(got) != 0 {
		t.Error("preview mode carries drag markers")
	}
}

func TestRender_ResultsFollowDescriptor(t *testing.T) {
	s := schema.Schema{
		schema.New("form", nil),
		schema.New("form", nil),
		schema.New("form", nil),
	}
	book := results.NewBook()
	book.Record(s[2].ID, results.Result{Success: "C"})

	r := newRenderer()
	n := r.Render(s, Interactive, book)
	if got := n.Find(ui.ByAttr("data-result-key", "form_2")); len(got) != 1 {
		t.Fatalf("form_2 entry missing")
	}

	s, _ = s.RemoveAt(1)
	n = r.Render(s, Interactive, book)
	got := n.Find(ui.ByAttr("data-result-key", "form_1"))
	if len(got) != 1 {
		t.Fatal("result not shown under form_1 after delete")
	}
	if !strings.Contains(got[0].TextContent(), "FORM 1") || !strings.Contains(got[0].TextContent(), "C") {
		t.Errorf("entry text = %q", got[0].TextContent())
	}
}

func TestInteraction_ReportRecords(t *testing.T) {
	book := results.NewBook()
	in := newRenderer().Interaction("abc", book)
	in.Report(results.Result{Success: "ok"})
	if r, ok := in.Result(); !ok || r.Success != "ok" {
		t.Errorf("Result() = %+v, %v", r, ok)
	}
	if in.Action() != SubmitPath("abc") {
		t.Errorf("Action() = %q", in.Action())
	}
	if newRenderer().Interaction("abc", nil).Action() != "" {
		t.Error("static interaction has an action")
	}
}

func TestRender_FormSubmitsInBothModes(t *testing.T) {
	r := newRenderer()
	form, _ := r.Registry().DefaultInstance(components.KindForm)
	s := schema.NewModel(schema.Schema{form}).Get()
	id := s[0].ID

	for _, mode := range []Mode{Preview, Interactive} {
		t.Run(mode.String(), func(t *testing.T) {
			book := results.NewBook()
			forms := r.Render(s, mode, book).Find(ui.ByTag("form"))
			if len(forms) != 1 {
				t.Fatalf("forms = %d, want 1", len(forms))
			}
			if got, _ := forms[0].Attr("hx-post"); got != SubmitPath(id) {
				t.Errorf("hx-post = %q, want %q", got, SubmitPath(id))
			}
			if forms[0].HasAttr("onsubmit") {
				t.Error("form submission is blocked")
			}

			book.Record(id, results.Result{Success: "Thanks"})
			panel := r.Render(s, mode, book).Find(ui.ByAttr("data-result-key", "form_0"))
			if len(panel) != 1 {
				t.Error("result missing from the results panel")
			}
		})
	}
}

func TestRender_WithoutBookIsStatic(t *testing.T) {
	r := newRenderer()
	form, _ := r.Registry().DefaultInstance(components.KindForm)
	forms := r.Render(schema.Schema{form}, Preview, nil).Find(ui.ByTag("form"))
	if len(forms) != 1 {
		t.Fatalf("forms = %d, want 1", len(forms))
	}
	if onsubmit, _ := forms[0].Attr("onsubmit"); onsubmit != "return false" {
		t.Errorf("onsubmit = %q, want return false", onsubmit)
	}
	if forms[0].HasAttr("hx-post") {
		t.Error("static form posts to the editor")
	}
}
