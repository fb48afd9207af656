// ABOUTME: Form component: labelled inputs, validation and submission logic.
// ABOUTME: Submitted values are validated per field, then passed to the form's logic expression.

package components

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/2389/dic/internal/logic"
	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

// DefaultSuccess is the result message of a form without logic.
const DefaultSuccess = "Form submitted successfully!"

var emailPattern = regexp.MustCompile(`(?i)^\S+@\S+$`)

// attribute names copied from unmodelled field keys onto the input.
var passthroughAttr = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

const inputClass = "w-full px-3 py-2 border border-slate-300 rounded-lg focus:outline-none focus:ring-2 focus:ring-blue-500/50"

// Form renders form descriptors and handles their submissions.
type Form struct{}

// NewForm returns the form component.
func NewForm() *Form { return &Form{} }

// FieldName is the submitted name of field i.
func FieldName(i int) string {
	return fmt.Sprintf("field_%d", i)
}

func (f *Form) Default() schema.Props {
	return schema.Props{
		"fields": []any{
			map[string]any{"label": "Name", "type": "text", "required": true, "placeholder": "Enter your name"},
		},
		"submitText": "Submit",
	}
}

func (f *Form) Render(props schema.Props, index int, in Interaction) ui.Node {
	fields := props.Fields()
	children := make([]ui.Node, 0, len(fields)+1)
	for i, field := range fields {
		children = append(children, renderField(field, i, index))
	}
	children = append(children, ui.El("button", []ui.Attr{
		ui.A("type", "submit"),
		ui.Class("w-full bg-blue-600 hover:bg-blue-700 text-white font-medium py-3 px-4 rounded-lg"),
	}, ui.Text(props.String("submitText", "Submit"))))

	formAttrs := []ui.Attr{ui.Class("space-y-4"), ui.A("method", "post")}
	if action := in.Action(); action != "" {
		formAttrs = append(formAttrs, ui.A("action", action), ui.A("hx-post", action))
	} else {
		formAttrs = append(formAttrs, ui.A("onsubmit", "return false"))
	}

	container := "bg-white border border-slate-200 rounded-xl p-6 shadow-lg max-w-md mx-auto"
	if extra := props.String("className", ""); extra != "" {
		container += " " + extra
	}
	body := []ui.Node{ui.El("form", formAttrs, children...)}
	if r, ok := in.Result(); ok {
		body = append(body, renderResult(r))
	}
	return ui.El("div", []ui.Attr{ui.Class(container)}, body...)
}

func renderField(field schema.Field, i, index int) ui.Node {
	name := FieldName(i)
	id := fmt.Sprintf("c%d-%s", index, name)

	label := []ui.Node{ui.Text(field.Label)}
	if field.Required {
		label = append(label, ui.El("span", []ui.Attr{ui.Class("text-red-500 ml-1")}, ui.Text("*")))
	}

	attrs := []ui.Attr{
		ui.A("id", id),
		ui.A("name", name),
		ui.B("required", field.Required),
	}

	var input ui.Node
	switch field.Type {
	case "textarea":
		rows := field.Rows
		if rows <= 0 {
			rows = 3
		}
		attrs = append(attrs, ui.A("placeholder", field.Placeholder), ui.A("rows", strconv.Itoa(rows)), ui.Class(inputClass))
		input = ui.El("textarea", append(attrs, extraAttrs(field)...))
	case "select":
		options := []ui.Node{ui.El("option", []ui.Attr{ui.A("value", "")}, ui.Text("Select "+field.Label))}
		for _, o := range field.Options {
			options = append(options, ui.El("option", []ui.Attr{ui.A("value", o.Value)}, ui.Text(o.Label)))
		}
		attrs = append(attrs, ui.Class(inputClass+" bg-white"))
		input = ui.El("select", append(attrs, extraAttrs(field)...), options...)
	default:
		attrs = append(attrs, ui.A("type", field.Type), ui.A("placeholder", field.Placeholder), ui.Class(inputClass))
		if field.Min != nil {
			attrs = append(attrs, ui.A("min", formatNumber(*field.Min)))
		}
		if field.Max != nil {
			attrs = append(attrs, ui.A("max", formatNumber(*field.Max)))
		}
		input = ui.El("input", append(attrs, extraAttrs(field)...))
	}

	return ui.El("div", []ui.Attr{ui.Class("mb-4")},
		ui.El("label", []ui.Attr{ui.A("for", id), ui.Class("block text-sm font-medium text-slate-700 mb-2")}, label...),
		input,
	)
}

// extraAttrs renders scalar unmodelled field keys as attributes. Event
// handler attributes are never copied.
func extraAttrs(field schema.Field) []ui.Attr {
	var attrs []ui.Attr
	for _, key := range sortedExtra(field.Extra) {
		if !passthroughAttr.MatchString(key) || strings.HasPrefix(strings.ToLower(key), "on") {
			continue
		}
		switch v := field.Extra[key].(type) {
		case string:
			attrs = append(attrs, ui.A(key, v))
		case float64:
			attrs = append(attrs, ui.A(key, formatNumber(v)))
		case bool:
			attrs = append(attrs, ui.B(key, v))
		}
	}
	return attrs
}

func sortedExtra(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderResult(r results.Result) ui.Node {
	switch {
	case r.Error != "":
		return ui.El("div", []ui.Attr{ui.Class("mt-4 bg-red-50 border border-red-200 rounded-lg p-3 text-red-800 text-sm"), ui.A("data-result", "error")},
			ui.El("strong", nil, ui.Text("Error:")), ui.Text(" "+r.Error))
	case r.Success != "":
		return ui.El("div", []ui.Attr{ui.Class("mt-4 bg-emerald-50 border border-emerald-200 rounded-lg p-3 text-emerald-800 text-sm"), ui.A("data-result", "success")},
			ui.El("strong", nil, ui.Text("Success:")), ui.Text(" "+r.Success))
	default:
		data, _ := json.MarshalIndent(r.Values, "", "  ")
		return ui.El("div", []ui.Attr{ui.Class("mt-4 bg-slate-50 border border-slate-200 rounded-lg p-3 text-slate-800 text-sm"), ui.A("data-result", "values")},
			ui.El("strong", nil, ui.Text("Submitted Data:")),
			ui.El("pre", []ui.Attr{ui.Class("mt-2 text-xs font-mono bg-slate-100 p-2 rounded border")}, ui.Text(string(data))))
	}
}

// Validate checks submitted values against the form's fields and returns
// one message per failed rule.
func (f *Form) Validate(props schema.Props, values map[string]any) []string {
	var problems []string
	for i, field := range props.Fields() {
		raw := strings.TrimSpace(valueString(values[FieldName(i)]))
		if raw == "" {
			if field.Required {
				problems = append(problems, fmt.Sprintf("%s is required", field.Label))
			}
			continue
		}
		if field.Type == "email" && !emailPattern.MatchString(raw) {
			problems = append(problems, "Invalid email address")
		}
		if field.Min == nil && field.Max == nil {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if field.Min != nil && n < *field.Min {
			problems = append(problems, "Minimum value is "+formatNumber(*field.Min))
		}
		if field.Max != nil && n > *field.Max {
			problems = append(problems, "Maximum value is "+formatNumber(*field.Max))
		}
	}
	return problems
}

// Submit validates values and runs the form's onSubmit logic.
func (f *Form) Submit(props schema.Props, values map[string]any) results.Result {
	result := results.Result{Values: values}
	if problems := f.Validate(props, values); len(problems) > 0 {
		result.Error = strings.Join(problems, "; ")
		return result
	}

	expr := strings.TrimSpace(props.String("onSubmit", ""))
	if expr == "" {
		result.Success = DefaultSuccess
		return result
	}
	outcome := logic.Run(expr, values)
	result.Success = outcome.Success
	result.Error = outcome.Error
	return result
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
