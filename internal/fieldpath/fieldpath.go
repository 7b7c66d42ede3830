// Package fieldpath parses and resolves property/array access paths
// against arbitrary decoded data trees (maps, slices, scalars).
// Both directive evaluation and frontmatter lookup are built on it.
package fieldpath

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidPath marks a path that fails the grammar.
	ErrInvalidPath = errors.New("invalid field path")
	// ErrCircularPath marks a path rejected by the repeated-segment heuristic.
	ErrCircularPath = errors.New("circular field path")
	// ErrFieldNotFound marks a missing key or out-of-range index.
	ErrFieldNotFound = errors.New("field not found")
	// ErrInvalidType marks a segment applied to a value of the wrong shape.
	ErrInvalidType = errors.New("invalid type for path segment")
)

// SegmentKind discriminates the three segment forms.
type SegmentKind uint8

const (
	// Property accesses a named key on an object.
	Property SegmentKind = iota
	// ArrayIndex accesses a fixed element of an array.
	ArrayIndex
	// Wildcard expands every element of an array. Only aggregate paths
	// (ParsePattern) produce it; Parse rejects empty brackets.
	Wildcard
)

// Segment is one step of a parsed path.
type Segment struct {
	Kind  SegmentKind
	Name  string // property name, empty for index/wildcard segments
	Index int    // array index, valid only for ArrayIndex
}

func (s Segment) String() string {
	switch s.Kind {
	case ArrayIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case Wildcard:
		return "[]"
	default:
		return s.Name
	}
}

// Path is an ordered sequence of segments.
type Path []Segment

// Depth is the number of segments.
func (p Path) Depth() int { return len(p) }

// HasArrayAccess reports whether any segment indexes or expands an array.
func (p Path) HasArrayAccess() bool {
	for _, s := range p {
		if s.Kind != Property {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 && s.Kind == Property {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Parse validates raw against the path grammar: dot-joined identifiers,
// each optionally followed by a single non-negative integer index.
// Empty input, stray dots, malformed brackets and repeated segment names
// (treated as a circular reference) are all rejected.
func Parse(raw string) (Path, error) {
	return parse(raw, false)
}

// ParsePattern is Parse with aggregate syntax enabled: a segment may use
// empty brackets ("commands[]") to expand every array element. Used by
// derive-from directives.
func ParsePattern(raw string) (Path, error) {
	return parse(raw, true)
}

func parse(raw string, allowWildcard bool) (Path, error) {
	if raw == "" {
		return nil, errors.Wrap(ErrInvalidPath, "empty path")
	}
	parts := strings.Split(raw, ".")
	path := make(Path, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		if part == "" {
			return nil, errors.Wrapf(ErrInvalidPath, "empty segment in %q", raw)
		}

		name := part
		bracket := ""
		hasBracket := false
		if i := strings.IndexByte(part, '['); i >= 0 {
			hasBracket = true
			if !strings.HasSuffix(part, "]") {
				return nil, errors.Wrapf(ErrInvalidPath, "unmatched bracket in %q", part)
			}
			name = part[:i]
			bracket = part[i+1 : len(part)-1]
			if strings.ContainsAny(bracket, "[]") {
				return nil, errors.Wrapf(ErrInvalidPath, "nested brackets in %q", part)
			}
		}

		if !validIdentifier(name) {
			return nil, errors.Wrapf(ErrInvalidPath, "invalid identifier %q", name)
		}
		if _, dup := seen[name]; dup {
			// Conservative heuristic: a repeated name is treated as a
			// circular reference rather than a legitimate recursive field.
			return nil, errors.Wrapf(ErrCircularPath, "segment %q repeats in %q", name, raw)
		}
		seen[name] = struct{}{}
		path = append(path, Segment{Kind: Property, Name: name})

		if hasBracket {
			switch {
			case bracket == "":
				if !allowWildcard {
					return nil, errors.Wrapf(ErrInvalidPath, "empty index in %q", part)
				}
				path = append(path, Segment{Kind: Wildcard})
			default:
				n, err := strconv.Atoi(bracket)
				if err != nil {
					return nil, errors.Wrapf(ErrInvalidPath, "non-numeric index %q in %q", bracket, part)
				}
				if n < 0 {
					return nil, errors.Wrapf(ErrInvalidPath, "negative index %d in %q", n, part)
				}
				path = append(path, Segment{Kind: ArrayIndex, Index: n})
			}
		}
	}
	return path, nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Get parses raw and resolves it against data.
func Get(data any, raw string) (any, error) {
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return GetPath(data, p)
}

// GetPath walks data segment by segment. A Property segment requires an
// object, an ArrayIndex segment requires an array with the index in range.
func GetPath(data any, p Path) (any, error) {
	cur := data
	for _, seg := range p {
		switch seg.Kind {
		case Property:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidType, "segment %q requires an object, got %T", seg.Name, cur)
			}
			v, ok := obj[seg.Name]
			if !ok {
				return nil, errors.Wrapf(ErrFieldNotFound, "no field %q", seg.Name)
			}
			cur = v
		case ArrayIndex:
			arr, ok := cur.([]any)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidType, "index [%d] requires an array, got %T", seg.Index, cur)
			}
			if seg.Index >= len(arr) {
				return nil, errors.Wrapf(ErrFieldNotFound, "index [%d] out of bounds (len %d)", seg.Index, len(arr))
			}
			cur = arr[seg.Index]
		case Wildcard:
			return nil, errors.Wrap(ErrInvalidPath, "wildcard segment in direct lookup")
		}
	}
	return cur, nil
}

// Collect resolves an aggregate path, expanding wildcard segments into
// every matching array element. Missing branches contribute nothing;
// the result holds the non-nil leaf values in tree order.
func Collect(data any, p Path) []any {
	if len(p) == 0 {
		if data == nil {
			return nil
		}
		return []any{data}
	}
	seg, rest := p[0], p[1:]
	switch seg.Kind {
	case Property:
		obj, ok := data.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[seg.Name]
		if !ok {
			return nil
		}
		return Collect(v, rest)
	case ArrayIndex:
		arr, ok := data.([]any)
		if !ok || seg.Index >= len(arr) {
			return nil
		}
		return Collect(arr[seg.Index], rest)
	default: // Wildcard
		arr, ok := data.([]any)
		if !ok {
			return nil
		}
		var out []any
		for _, el := range arr {
			out = append(out, Collect(el, rest)...)
		}
		return out
	}
}
