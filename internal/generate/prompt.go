// ABOUTME: Model prompt for schema generation and decoding of model replies.
// ABOUTME: Replies may be fenced in markdown or wrapped in an object; both are unwrapped before parsing.

package generate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/2389/dic/internal/schema"
)

const systemPrompt = `You generate UI schemas. Respond with a JSON array only, no markdown or explanation.
Each element is an object with a "type" and its properties. Supported types:
- "text": content (string), variant ("h1".."h6", "p", "span"), className (optional)
- "image": src (URL), alt, width, height, rounded (bool), shadow (bool)
- "form": fields (array of {label, type, required, placeholder, min, max, rows, options}), submitText, onSubmit (optional)
Field types are text, email, password, number, tel, url, date, textarea, select, checkbox.
Select options are strings or {value, label} objects.
onSubmit is an expression over the submitted values, for example:
  len(values.field_0) < 2 ? error("Name is too short") : "Thanks " + values.field_0
Fields are named field_0, field_1, ... in order.`

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\\s*```$")

// StripFences removes a surrounding markdown code fence.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Decode parses a model reply into a schema. The reply must be a JSON array,
// or an object holding the array under "schema" or "components".
func Decode(text string) (schema.Schema, error) {
	text = StripFences(text)
	if !gjson.Valid(text) {
		return nil, &schema.ParseError{Msg: "reply is not valid JSON"}
	}
	doc := gjson.Parse(text)
	if doc.IsObject() {
		for _, key := range []string{"schema", "components"} {
			if v := doc.Get(key); v.IsArray() {
				doc = v
				break
			}
		}
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("reply is not a component array")
	}
	return schema.Parse(doc.Raw)
}
