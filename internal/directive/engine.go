package directive

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/fieldpath"
	"github.com/agentic-research/loom/internal/frontmatter"
	"github.com/agentic-research/loom/internal/logger"
	"github.com/agentic-research/loom/internal/schema"
)

// FilterEvaluator evaluates an embedded filter expression against a
// value. The engine does not own the query language; it delegates.
type FilterEvaluator interface {
	Apply(expr string, value any) (any, error)
}

// Engine walks the flattened schema and applies directives to document
// data in the order fixed by the active ordering strategy. Flatten and
// derive are implemented directly; filter evaluation is delegated, and
// the template-binding kinds are consumed during template resolution.
//
// A directive's output is a pure function of the schema node and the
// data tree; the engine keeps no state between passes.
type Engine struct {
	ordering Ordering
	filter   FilterEvaluator
}

func NewEngine(ordering Ordering, filter FilterEvaluator) *Engine {
	return &Engine{ordering: ordering, filter: filter}
}

// Prepare runs both directive scopes over the document set.
//
// Per-document directives (flatten, filter) rewrite each document's tree
// independently; cross-document directives (part extraction, derive-from)
// run afterwards against the aggregated set, honoring the barrier between
// extraction and aggregation. The returned main slice holds one processed
// tree per document; prepared is the aggregate schema-shaped tree.
//
// Directive failures that cannot resolve a source are tagged and folded
// into the returned error when they are fatal for the output (derive and
// filter); merely-missing optional sources are skipped and logged.
func (e *Engine) Prepare(s *api.Schema, docs []frontmatter.Document) ([]any, map[string]any, error) {
	arena, err := schema.Flatten(s)
	if err != nil {
		return nil, nil, err
	}

	var firstErr error
	fail := func(derr error) {
		if firstErr == nil {
			firstErr = derr
		} else {
			firstErr = errors.CombineErrors(firstErr, derr)
		}
	}

	main := make([]any, 0, len(docs))
	for _, d := range docs {
		tree := d.Meta.Raw()
		if tree == nil {
			tree = map[string]any{}
		}
		e.perDocumentPass(arena, tree, fail)
		main = append(main, any(tree))
	}

	prepared := map[string]any{}
	e.aggregatePass(arena, docs, main, prepared, fail)
	e.injectDefaults(arena, prepared)

	if firstErr != nil {
		return main, prepared, firstErr
	}
	return main, prepared, nil
}

// perDocumentPass applies the document-scoped directive kinds to one
// tree, in ordering order.
func (e *Engine) perDocumentPass(arena *schema.Arena, tree map[string]any, fail func(error)) {
	for _, kind := range e.ordering.Kinds() {
		it := arena.Annotated.Iterator()
		for it.HasNext() {
			idx := int32(it.Next())
			entry := arena.Entries[idx]
			if crossesItems(arena, idx) {
				continue
			}
			path := arena.PropertyPath(idx)

			switch kind {
			case KindFlatten:
				if entry.Node.Flatten != "" {
					e.applyFlatten(tree, path, entry.Node.Flatten)
				}
			case KindFilter:
				if entry.Node.Filter != "" {
					e.applyFilter(tree, path, entry.Node.Filter, fail)
				}
			}
		}
	}
}

// aggregatePass applies the cross-document directive kinds to the
// prepared tree, in ordering order.
func (e *Engine) aggregatePass(arena *schema.Arena, docs []frontmatter.Document, main []any, prepared map[string]any, fail func(error)) {
	for _, kind := range e.ordering.Kinds() {
		it := arena.Annotated.Iterator()
		for it.HasNext() {
			idx := int32(it.Next())
			entry := arena.Entries[idx]
			if crossesItems(arena, idx) {
				continue
			}
			path := arena.PropertyPath(idx)

			switch kind {
			case KindPart:
				if entry.Node.Part {
					setAt(prepared, path, collectParts(entry.Name, docs, main))
				}
			case KindDeriveFrom:
				if entry.Node.DerivedFrom != "" {
					// derive-unique is a companion flag on the same node;
					// it has no standalone action in this pass.
					vals, derr := deriveValues(prepared, entry.Node.DerivedFrom, entry.Node.DerivedUnique)
					if derr != nil {
						fail(newError(KindDeriveFrom, joinPath(path), derr))
						continue
					}
					setAt(prepared, path, vals)
				}
			case KindFlatten:
				if entry.Node.Flatten != "" {
					e.applyFlatten(prepared, path, entry.Node.Flatten)
				}
			case KindFilter:
				if entry.Node.Filter != "" {
					e.applyFilter(prepared, path, entry.Node.Filter, fail)
				}
			}
		}
	}
}

// injectDefaults adds schema defaults for properties still absent from
// the prepared tree. Shallow: array elements are never recursed into.
func (e *Engine) injectDefaults(arena *schema.Arena, prepared map[string]any) {
	it := arena.Defaulted.Iterator()
	for it.HasNext() {
		idx := int32(it.Next())
		if crossesItems(arena, idx) {
			continue
		}
		path := arena.PropertyPath(idx)
		if _, ok := getAt(prepared, path); ok {
			continue
		}
		setAt(prepared, path, arena.Entries[idx].Node.Default)
	}
}

// ExtractItems collects one element per document for the first schema
// array marked x-part. Implements the items-data collaborator contract.
func (e *Engine) ExtractItems(s *api.Schema, docs []frontmatter.Document) ([]any, error) {
	arena, err := schema.Flatten(s)
	if err != nil {
		return nil, err
	}
	for i := range arena.Entries {
		entry := arena.Entries[i]
		if !entry.Node.Part || crossesItems(arena, int32(i)) {
			continue
		}
		items := make([]any, 0, len(docs))
		for _, d := range docs {
			items = append(items, partElement(entry.Name, d.Meta.Raw()))
		}
		return items, nil
	}
	return []any{}, nil
}

// applyFlatten rewrites the annotated node's sibling property prop in
// its parent container by the flatten rules: missing/null becomes an
// empty array, a scalar becomes a one-element array, arrays are
// recursively flattened depth-first preserving element order.
func (e *Engine) applyFlatten(root map[string]any, path []string, prop string) {
	var container any = root
	if len(path) > 1 {
		v, ok := getAt(root, path[:len(path)-1])
		if !ok {
			logger.Logger.Debugw("flatten container missing, skipping", "path", joinPath(path))
			return
		}
		container = v
	}
	obj, ok := container.(map[string]any)
	if !ok {
		logger.Logger.Debugw("flatten container is not an object, skipping", "path", joinPath(path))
		return
	}
	obj[prop] = flattenValue(obj[prop])
}

func (e *Engine) applyFilter(root map[string]any, path []string, expr string, fail func(error)) {
	val, ok := getAt(root, path)
	if !ok {
		logger.Logger.Debugw("filter source missing, skipping", "path", joinPath(path))
		return
	}
	out, err := e.filter.Apply(expr, val)
	if err != nil {
		fail(newError(KindFilter, joinPath(path), err))
		return
	}
	setAt(root, path, out)
}

// collectParts yields one element per document: the document's field of
// the same name when it exists, otherwise the whole processed tree.
func collectParts(name string, docs []frontmatter.Document, main []any) []any {
	out := make([]any, 0, len(docs))
	for i := range docs {
		tree, _ := main[i].(map[string]any)
		out = append(out, partElement(name, tree))
	}
	return out
}

func partElement(name string, tree map[string]any) any {
	if v, ok := tree[name]; ok {
		return v
	}
	return tree
}

// deriveValues resolves an aggregate path against the prepared tree,
// expanding array segments across every matched element, coercing
// non-null leaves to strings and sorting lexicographically. unique
// applies set semantics before the sort.
func deriveValues(root map[string]any, raw string, unique bool) ([]any, error) {
	p, err := fieldpath.ParsePattern(raw)
	if err != nil {
		return nil, err
	}
	leaves := fieldpath.Collect(root, p)

	strs := make([]string, 0, len(leaves))
	seen := make(map[string]bool, len(leaves))
	for _, v := range leaves {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if unique {
			if seen[s] {
				continue
			}
			seen[s] = true
		}
		strs = append(strs, s)
	}
	sort.Strings(strs)

	out := make([]any, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out, nil
}

func flattenValue(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		out := make([]any, 0, len(t))
		for _, el := range t {
			out = append(out, flattenValue(el)...)
		}
		return out
	default:
		return []any{v}
	}
}

func crossesItems(arena *schema.Arena, idx int32) bool {
	for idx >= 0 {
		e := arena.Entries[idx]
		if e.Kind == schema.EntryItems {
			return true
		}
		idx = e.Parent
	}
	return false
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// getAt resolves a property path of map keys.
func getAt(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setAt writes a value at a property path, creating intermediate objects.
func setAt(root map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	cur := root
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}
