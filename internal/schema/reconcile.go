// ABOUTME: Carries durable descriptor IDs across schema replacements.
// ABOUTME: Matches by identical content first, then by position and kind for edits of the same document.

package schema

import "github.com/google/go-cmp/cmp"

// Reconcile returns next with IDs assigned and props normalized to their
// JSON form. Descriptors that already carry an ID keep it. Otherwise a
// descriptor takes the ID of an unused previous descriptor with identical
// kind and props (earliest first). When positional is set, a descriptor still
// without an ID then takes the ID of the previous descriptor at the same
// index if it has the same kind. Everything else gets a fresh ID. Each
// previous ID is used at most once.
func Reconcile(prev, next Schema, positional bool) Schema {
	out := make(Schema, len(next))
	copy(out, next)
	for i := range out {
		out[i].Props = Normalize(out[i].Props)
	}

	used := make(map[string]bool, len(prev))
	for i, d := range out {
		if d.ID == "" {
			continue
		}
		if used[d.ID] {
			out[i].ID = ""
			continue
		}
		used[d.ID] = true
	}

	for i := range out {
		if out[i].ID != "" {
			continue
		}
		for _, p := range prev {
			if used[p.ID] || p.ID == "" {
				continue
			}
			if p.Kind == out[i].Kind && sameProps(p.Props, out[i].Props) {
				out[i].ID = p.ID
				used[p.ID] = true
				break
			}
		}
	}

	for i := range out {
		if out[i].ID != "" {
			continue
		}
		if positional && i < len(prev) && prev[i].ID != "" && !used[prev[i].ID] && prev[i].Kind == out[i].Kind {
			out[i].ID = prev[i].ID
			used[prev[i].ID] = true
			continue
		}
		out[i].ID = NewID()
		used[out[i].ID] = true
	}
	return out
}

func sameProps(a, b Props) bool {
	return cmp.Equal(a, b, equalOpts)
}
