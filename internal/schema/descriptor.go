// ABOUTME: Component descriptor and schema value types.
// ABOUTME: Descriptors carry a kind tag, JSON props, and a durable ID that never reaches the document.

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the type tag of a descriptor ("form", "text", "image", ...).
type Kind string

// Props holds the JSON-representable properties of a descriptor.
type Props map[string]any

// Descriptor is one typed entry in a Schema.
type Descriptor struct {
	// ID is assigned when the descriptor enters a Model. It is not part of
	// the document format and is ignored by Equal.
	ID    string
	Kind  Kind
	Props Props
}

// Schema is the ordered list of descriptors. Order is render order.
type Schema []Descriptor

// New builds a descriptor with a fresh ID and normalized props.
func New(kind Kind, props Props) Descriptor {
	return Descriptor{
		ID:    NewID(),
		Kind:  kind,
		Props: Normalize(props),
	}
}

// NewID returns a fresh opaque descriptor identifier.
func NewID() string {
	return uuid.NewString()
}

// Normalize converts props into the value space produced by decoding JSON
// (float64 numbers, []any, map[string]any), so that in-memory values and
// parsed values compare equal.
func Normalize(props Props) Props {
	if props == nil {
		return Props{}
	}
	data, err := encodeValue(props)
	if err != nil {
		return props
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return props
	}
	delete(out, "type")
	return Props(out)
}

// With returns a copy of the descriptor whose props have patch merged in.
// A nil patch value removes the key.
func (d Descriptor) With(patch Props) Descriptor {
	merged := make(Props, len(d.Props)+len(patch))
	for k, v := range d.Props {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	d.Props = Normalize(merged)
	return d
}

// String returns a string prop or def when absent or not a string.
func (p Props) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Bool returns a boolean prop. Strings "true" and "1" count as true.
func (p Props) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v != 0
	default:
		return false
	}
}

// Number returns a numeric prop and whether it was present.
func (p Props) Number(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// MarshalJSON writes the document form of the descriptor: "type" first,
// then the props in sorted key order.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	kind, err := encodeValue(string(d.Kind))
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"type":`)
	buf.Write(kind)

	for _, key := range sortedKeys(d.Props) {
		if key == "type" {
			continue
		}
		k, err := encodeValue(key)
		if err != nil {
			return nil, err
		}
		v, err := encodeValue(d.Props[key])
		if err != nil {
			return nil, fmt.Errorf("prop %q: %w", key, err)
		}
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the document form of a descriptor. The ID is left
// empty; a Model assigns it on publication.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	desc, err := descriptorFromObject(obj)
	if err != nil {
		return err
	}
	*d = desc
	return nil
}

func descriptorFromObject(obj map[string]any) (Descriptor, error) {
	kind, ok := obj["type"].(string)
	if !ok || kind == "" {
		return Descriptor{}, fmt.Errorf(`missing "type" string`)
	}
	props := make(Props, len(obj))
	for k, v := range obj {
		if k == "type" {
			continue
		}
		props[k] = v
	}
	return Descriptor{Kind: Kind(kind), Props: props}, nil
}

// encodeValue marshals without HTML escaping so that markup typed into the
// buffer survives a round trip unchanged.
func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
