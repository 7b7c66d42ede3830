package schema

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
)

func writeSchema(t *testing.T, path, body string) *Loader {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, path, []byte(body), 0o644))
	return NewLoader(fsys)
}

func TestLoad_JSON(t *testing.T) {
	l := writeSchema(t, "/schema.json", `{
		"version": "1",
		"type": "object",
		"x-template": "main.tmpl",
		"x-output-format": "yaml",
		"properties": {
			"commands": {"type": "array", "x-part": true},
			"tags": {"x-flatten": "tags"}
		}
	}`)

	s, err := l.Load("/schema.json")
	require.NoError(t, err)
	assert.Equal(t, "main.tmpl", s.Template)
	assert.Equal(t, "yaml", s.OutputFormat)
	assert.True(t, s.Properties["commands"].Part)
	assert.Equal(t, "tags", s.Properties["tags"].Flatten)
}

func TestLoad_YAML(t *testing.T) {
	l := writeSchema(t, "/schema.yaml", `
version: "1"
type: object
x-template: main.tmpl
properties:
  commands:
    type: array
    x-part: true
    x-derived-from: "commands[].c1"
    x-derived-unique: true
`)

	s, err := l.Load("/schema.yaml")
	require.NoError(t, err)
	n := s.Properties["commands"]
	require.NotNil(t, n)
	assert.Equal(t, "commands[].c1", n.DerivedFrom)
	assert.True(t, n.DerivedUnique)
}

func TestLoad_NotFound(t *testing.T) {
	l := NewLoader(memfs.New())
	_, err := l.Load("/missing.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Malformed(t *testing.T) {
	l := writeSchema(t, "/schema.json", `{"type": "object",`)
	_, err := l.Load("/schema.json")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_NonObjectRoot(t *testing.T) {
	l := writeSchema(t, "/schema.json", `{"type": "array"}`)
	_, err := l.Load("/schema.json")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_BadOutputFormat(t *testing.T) {
	l := writeSchema(t, "/schema.json", `{"type": "object", "x-output-format": "toml"}`)
	_, err := l.Load("/schema.json")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "toml")
}

func TestResolveRefs_SharedDefinition(t *testing.T) {
	s := &api.Schema{
		Properties: map[string]*api.Node{
			"a": {Ref: "#/definitions/leaf"},
			"b": {Ref: "#/definitions/leaf"},
		},
		Definitions: map[string]*api.Node{
			"leaf": {Type: "string"},
		},
	}
	require.NoError(t, ResolveRefs(s))

	// Both properties alias the same definition node.
	assert.Same(t, s.Properties["a"], s.Properties["b"])
	assert.Equal(t, "string", s.Properties["a"].Type)
}

func TestResolveRefs_Chained(t *testing.T) {
	s := &api.Schema{
		Properties: map[string]*api.Node{
			"a": {Ref: "#/definitions/mid"},
		},
		Definitions: map[string]*api.Node{
			"mid":  {Ref: "#/definitions/leaf"},
			"leaf": {Type: "number"},
		},
	}
	require.NoError(t, ResolveRefs(s))
	assert.Equal(t, "number", s.Properties["a"].Type)
}

func TestResolveRefs_Unresolved(t *testing.T) {
	s := &api.Schema{
		Properties: map[string]*api.Node{
			"a": {Ref: "#/definitions/nope"},
		},
	}
	require.ErrorIs(t, ResolveRefs(s), ErrUnresolvedRef)
}

func TestResolveRefs_RefCycle(t *testing.T) {
	s := &api.Schema{
		Properties: map[string]*api.Node{
			"a": {Ref: "#/definitions/x"},
		},
		Definitions: map[string]*api.Node{
			"x": {Ref: "#/definitions/y"},
			"y": {Ref: "#/definitions/x"},
		},
	}
	require.ErrorIs(t, ResolveRefs(s), ErrCircularRef)
}

func TestLoad_SelfReferentialDefinition(t *testing.T) {
	// A definition whose child refers back to itself is resolvable, but
	// flattening must refuse the resulting cycle.
	l := writeSchema(t, "/schema.json", `{
		"type": "object",
		"properties": {"root": {"$ref": "#/definitions/node"}},
		"definitions": {
			"node": {
				"type": "object",
				"properties": {"child": {"$ref": "#/definitions/node"}}
			}
		}
	}`)
	_, err := l.Load("/schema.json")
	require.ErrorIs(t, err, ErrCircularRef)
}
