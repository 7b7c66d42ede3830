// Package frontmatter extracts the structured metadata block from a
// document and exposes it as an immutable key/value tree with path-based
// read access.
package frontmatter

import (
	"github.com/agentic-research/loom/internal/fieldpath"
)

// Content is a per-document immutable metadata tree. All mutation
// produces a new instance; the underlying tree is never shared with
// callers in a writable form.
type Content struct {
	fields map[string]any
}

// New copies fields into a fresh Content.
func New(fields map[string]any) Content {
	return Content{fields: deepCopyMap(fields)}
}

// Get resolves a segment path ("items[0].name") against the tree.
func (c Content) Get(path string) (any, error) {
	return fieldpath.Get(c.rawView(), path)
}

// Lookup resolves a bracket-free dotted path via the legacy resolver.
func (c Content) Lookup(dotted string) (any, error) {
	return fieldpath.Lookup(c.rawView(), dotted)
}

// Has reports whether path resolves to a value.
func (c Content) Has(path string) bool {
	_, err := c.Get(path)
	return err == nil
}

// With returns a new Content with key set to value at the top level.
func (c Content) With(key string, value any) Content {
	next := deepCopyMap(c.fields)
	if next == nil {
		next = make(map[string]any, 1)
	}
	next[key] = deepCopyValue(value)
	return Content{fields: next}
}

// Raw returns a deep copy of the whole tree for aggregation.
func (c Content) Raw() map[string]any {
	return deepCopyMap(c.fields)
}

// IsEmpty reports whether the tree has no top-level fields.
func (c Content) IsEmpty() bool { return len(c.fields) == 0 }

// rawView exposes the internal tree for read-only resolution.
// Resolvers never mutate, so no copy is taken on the hot path.
func (c Content) rawView() map[string]any { return c.fields }

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = deepCopyValue(el)
		}
		return out
	default:
		return v
	}
}
