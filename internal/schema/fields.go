// ABOUTME: Field descriptors nested inside form descriptors.
// ABOUTME: Typed view over props.fields plus pure append/update/remove operations.

package schema

import "fmt"

// Field is the typed view of one entry of a form's "fields" prop.
type Field struct {
	Label       string
	Type        string
	Required    bool
	Placeholder string
	Min         *float64
	Max         *float64
	Rows        int
	Options     []Option
	// Extra keeps keys this type does not model, so they survive edits.
	Extra map[string]any
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// FieldError reports a field index outside a form's field list.
type FieldError struct {
	Index int
	Field int
	Count int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("component %d: field %d out of range [0,%d)", e.Index, e.Field, e.Count)
}

// Fields returns the typed fields of a form descriptor's props.
func (p Props) Fields() []Field {
	raw, _ := p["fields"].([]any)
	fields := make([]Field, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fields = append(fields, FieldFromMap(m))
	}
	return fields
}

// FieldFromMap reads a field from its document form.
func FieldFromMap(m map[string]any) Field {
	p := Props(m)
	f := Field{
		Label:       p.String("label", ""),
		Type:        p.String("type", "text"),
		Required:    p.Bool("required"),
		Placeholder: p.String("placeholder", ""),
		Extra:       map[string]any{},
	}
	if v, ok := p.Number("min"); ok {
		f.Min = &v
	}
	if v, ok := p.Number("max"); ok {
		f.Max = &v
	}
	if v, ok := p.Number("rows"); ok {
		f.Rows = int(v)
	}
	if opts, ok := m["options"].([]any); ok {
		for _, o := range opts {
			switch ov := o.(type) {
			case string:
				f.Options = append(f.Options, Option{Value: ov, Label: ov})
			case map[string]any:
				op := Props(ov)
				value := op.String("value", "")
				f.Options = append(f.Options, Option{Value: value, Label: op.String("label", value)})
			default:
				s := fmt.Sprint(ov)
				f.Options = append(f.Options, Option{Value: s, Label: s})
			}
		}
	}
	for k, v := range m {
		switch k {
		case "label", "type", "required", "placeholder", "min", "max", "rows", "options":
		default:
			f.Extra[k] = v
		}
	}
	return f
}

// Map returns the document form of the field.
func (f Field) Map() map[string]any {
	m := map[string]any{}
	for k, v := range f.Extra {
		m[k] = v
	}
	m["label"] = f.Label
	m["type"] = f.Type
	m["required"] = f.Required
	if f.Placeholder != "" {
		m["placeholder"] = f.Placeholder
	}
	if f.Min != nil {
		m["min"] = *f.Min
	}
	if f.Max != nil {
		m["max"] = *f.Max
	}
	if f.Rows > 0 {
		m["rows"] = float64(f.Rows)
	}
	if len(f.Options) > 0 {
		opts := make([]any, 0, len(f.Options))
		for _, o := range f.Options {
			if o.Label == o.Value {
				opts = append(opts, o.Value)
				continue
			}
			opts = append(opts, map[string]any{"value": o.Value, "label": o.Label})
		}
		m["options"] = opts
	}
	return m
}

func rawFields(d Descriptor) []any {
	raw, _ := d.Props["fields"].([]any)
	out := make([]any, len(raw))
	copy(out, raw)
	return out
}

// AppendField adds a field to the end of the form at index.
func (s Schema) AppendField(index int, f Field) (Schema, error) {
	if !s.inRange(index) {
		return s, &IndexError{Op: "append field", Index: index, Length: len(s)}
	}
	fields := append(rawFields(s[index]), f.Map())
	return s.UpdateAt(index, Props{"fields": fields})
}

// UpdateField merges patch into field fieldIndex of the form at index.
func (s Schema) UpdateField(index, fieldIndex int, patch map[string]any) (Schema, error) {
	if !s.inRange(index) {
		return s, &IndexError{Op: "update field", Index: index, Length: len(s)}
	}
	fields := rawFields(s[index])
	if fieldIndex < 0 || fieldIndex >= len(fields) {
		return s, &FieldError{Index: index, Field: fieldIndex, Count: len(fields)}
	}
	current, _ := fields[fieldIndex].(map[string]any)
	merged := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	fields[fieldIndex] = merged
	return s.UpdateAt(index, Props{"fields": fields})
}

// RemoveField deletes field fieldIndex of the form at index; later fields re-index.
func (s Schema) RemoveField(index, fieldIndex int) (Schema, error) {
	if !s.inRange(index) {
		return s, &IndexError{Op: "remove field", Index: index, Length: len(s)}
	}
	fields := rawFields(s[index])
	if fieldIndex < 0 || fieldIndex >= len(fields) {
		return s, &FieldError{Index: index, Field: fieldIndex, Count: len(fields)}
	}
	fields = append(fields[:fieldIndex], fields[fieldIndex+1:]...)
	return s.UpdateAt(index, Props{"fields": fields})
}
