package schema

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/errors"

	"github.com/agentic-research/loom/api"
)

// EntryKind discriminates how an arena entry hangs off its parent.
type EntryKind uint8

const (
	EntryProperty EntryKind = iota
	EntryItems
)

// Entry is one schema node flattened into the arena.
type Entry struct {
	// Name is the property name under the parent; empty for items entries.
	Name   string
	Node   *api.Node
	Parent int32 // arena index of the parent entry, -1 for root properties
	Kind   EntryKind
	Depth  int
}

// Arena is the schema tree flattened into an indexed slice, built with an
// explicit worklist so deeply nested schemas never grow the call stack.
// Entries appear parent-before-child; siblings are ordered by name for
// deterministic directive passes.
type Arena struct {
	Entries []Entry
	// Annotated indexes entries carrying at least one directive.
	Annotated *roaring.Bitmap
	// Defaulted indexes entries carrying a default value.
	Defaulted *roaring.Bitmap
}

// Flatten walks the schema with a worklist, assigning each node an arena
// index. A node reached twice (shared or cyclic reference) is a true
// cycle by identity, independent of what the nodes are named.
func Flatten(s *api.Schema) (*Arena, error) {
	a := &Arena{
		Annotated: roaring.New(),
		Defaulted: roaring.New(),
	}

	type work struct {
		name   string
		node   *api.Node
		parent int32
		kind   EntryKind
		depth  int
	}

	type frame struct {
		w    work
		exit bool // post-visit marker: pop the node off the active path
	}

	// Depth-first with an explicit stack; nesting depth never grows the
	// call stack. Cycle detection is by node identity along the active
	// path, so shared (diamond) references are legal while a node that is
	// its own ancestor is not.
	const maxDepth = 64
	onPath := make(map[*api.Node]bool)

	var stack []frame
	rootNames := sortedKeys(s.Properties)
	for i := len(rootNames) - 1; i >= 0; i-- {
		name := rootNames[i]
		stack = append(stack, frame{w: work{name: name, node: s.Properties[name], parent: -1, kind: EntryProperty}})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit {
			delete(onPath, f.w.node)
			continue
		}
		if f.w.node == nil {
			continue
		}
		if onPath[f.w.node] {
			return nil, errors.Wrapf(ErrCircularRef, "node %q is its own ancestor", f.w.name)
		}
		if f.w.depth > maxDepth {
			return nil, errors.Wrapf(ErrInvalid, "schema nesting exceeds depth %d at %q", maxDepth, f.w.name)
		}

		idx := int32(len(a.Entries))
		a.Entries = append(a.Entries, Entry{
			Name:   f.w.name,
			Node:   f.w.node,
			Parent: f.w.parent,
			Kind:   f.w.kind,
			Depth:  f.w.depth,
		})
		if f.w.node.Annotated() {
			a.Annotated.Add(uint32(idx))
		}
		if f.w.node.Default != nil {
			a.Defaulted.Add(uint32(idx))
		}

		onPath[f.w.node] = true
		stack = append(stack, frame{w: f.w, exit: true})

		// Push items first so properties (in name order) expand first.
		if f.w.node.Items != nil {
			stack = append(stack, frame{w: work{node: f.w.node.Items, parent: idx, kind: EntryItems, depth: f.w.depth + 1}})
		}
		names := sortedKeys(f.w.node.Properties)
		for i := len(names) - 1; i >= 0; i-- {
			name := names[i]
			stack = append(stack, frame{w: work{name: name, node: f.w.node.Properties[name], parent: idx, kind: EntryProperty, depth: f.w.depth + 1}})
		}
	}
	return a, nil
}

// PropertyPath returns the property names from the root down to entry i,
// skipping items entries.
func (a *Arena) PropertyPath(i int32) []string {
	var rev []string
	for i >= 0 {
		e := a.Entries[i]
		if e.Kind == EntryProperty {
			rev = append(rev, e.Name)
		}
		i = e.Parent
	}
	out := make([]string, 0, len(rev))
	for j := len(rev) - 1; j >= 0; j-- {
		out = append(out, rev[j])
	}
	return out
}

func sortedKeys(m map[string]*api.Node) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
