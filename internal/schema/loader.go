// Package schema loads, validates and flattens Loom schema documents.
package schema

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/api"
)

var (
	// ErrNotFound marks a schema path that does not exist.
	ErrNotFound = errors.New("schema not found")
	// ErrInvalid marks a schema that fails structural validation.
	ErrInvalid = errors.New("invalid schema")
	// ErrUnresolvedRef marks a $ref with no matching definition.
	ErrUnresolvedRef = errors.New("unresolved schema reference")
	// ErrCircularRef marks a reference cycle in the schema tree.
	ErrCircularRef = errors.New("circular schema reference")
)

// Loader reads schema documents from a filesystem. JSON schemas decode
// through ojg, YAML schemas through yaml.v3.
type Loader struct {
	fs billy.Filesystem
}

func NewLoader(fsys billy.Filesystem) *Loader {
	return &Loader{fs: fsys}
}

// Load reads, decodes, resolves references and validates the schema at
// path.
func (l *Loader) Load(path string) (*api.Schema, error) {
	raw, err := util.ReadFile(l.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "read schema %s", path)
	}

	var s api.Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(ErrInvalid, "parse %s: %v", path, err)
		}
	default:
		if err := oj.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(ErrInvalid, "parse %s: %v", path, err)
		}
	}

	if err := ResolveRefs(&s); err != nil {
		return nil, err
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveRefs replaces every $ref node with a pointer to its definition.
// Aliasing is deliberate: a definition referenced twice is shared, and a
// self-referential definition forms a true cycle that Flatten detects.
func ResolveRefs(s *api.Schema) error {
	resolve := func(n *api.Node) (*api.Node, error) {
		// Follow chained references with a hop limit so a ref-to-ref
		// cycle cannot spin forever.
		for hops := 0; n != nil && n.Ref != ""; hops++ {
			if hops > len(s.Definitions) {
				return nil, errors.Wrapf(ErrCircularRef, "reference chain from %q", n.Ref)
			}
			name := strings.TrimPrefix(n.Ref, "#/definitions/")
			if name == n.Ref || name == "" {
				return nil, errors.Wrapf(ErrUnresolvedRef, "unsupported reference %q", n.Ref)
			}
			def, ok := s.Definitions[name]
			if !ok {
				return nil, errors.Wrapf(ErrUnresolvedRef, "%q", n.Ref)
			}
			n = def
		}
		return n, nil
	}

	// Worklist over every node holder; definitions are resolved too so
	// chained references collapse.
	type holder struct {
		get func() *api.Node
		set func(*api.Node)
	}
	var work []holder
	for k := range s.Properties {
		k := k
		work = append(work, holder{
			get: func() *api.Node { return s.Properties[k] },
			set: func(n *api.Node) { s.Properties[k] = n },
		})
	}
	for k := range s.Definitions {
		k := k
		work = append(work, holder{
			get: func() *api.Node { return s.Definitions[k] },
			set: func(n *api.Node) { s.Definitions[k] = n },
		})
	}

	visited := make(map[*api.Node]bool)
	for len(work) > 0 {
		h := work[len(work)-1]
		work = work[:len(work)-1]

		n, err := resolve(h.get())
		if err != nil {
			return err
		}
		h.set(n)
		if n == nil || visited[n] {
			continue
		}
		visited[n] = true

		for k := range n.Properties {
			k, n := k, n
			work = append(work, holder{
				get: func() *api.Node { return n.Properties[k] },
				set: func(c *api.Node) { n.Properties[k] = c },
			})
		}
		if n.Items != nil {
			n := n
			work = append(work, holder{
				get: func() *api.Node { return n.Items },
				set: func(c *api.Node) { n.Items = c },
			})
		}
	}
	return nil
}
