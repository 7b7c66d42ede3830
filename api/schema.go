package api

// Schema is the root of a Loom schema document.
// It declares the shape of the rendered output and carries the
// schema-level template bindings.
type Schema struct {
	// Version of the Loom schema format.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Type of the root value, normally "object".
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Properties of the root object.
	Properties map[string]*Node `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Definitions are named nodes referenced through $ref.
	Definitions map[string]*Node `json:"definitions,omitempty" yaml:"definitions,omitempty"`

	// Template is the path to the main output template (x-template).
	Template string `json:"x-template,omitempty" yaml:"x-template,omitempty"`
	// ItemsTemplate is the path to the per-item template (x-items-template).
	ItemsTemplate string `json:"x-items-template,omitempty" yaml:"x-items-template,omitempty"`
	// OutputFormat overrides the rendered output format (x-output-format).
	OutputFormat string `json:"x-output-format,omitempty" yaml:"x-output-format,omitempty"`
}

// Node is a single schema property. Nodes nest arbitrarily through
// Properties (objects) and Items (arrays); any node may carry directive
// annotations that tell the engine how to populate it.
type Node struct {
	// Type of the value ("object", "array", "string", ...).
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Properties of an object-typed node.
	Properties map[string]*Node `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Items describes the element shape of an array-typed node.
	Items *Node `json:"items,omitempty" yaml:"items,omitempty"`
	// Default is injected when no directive produced a value (shallow).
	Default any `json:"default,omitempty" yaml:"default,omitempty"`
	// Ref points at a definition ("#/definitions/name"). Resolved at load.
	Ref string `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	// Part marks the node for per-document extraction (x-part).
	Part bool `json:"x-part,omitempty" yaml:"x-part,omitempty"`
	// Flatten names a property whose nested arrays are flattened (x-flatten).
	Flatten string `json:"x-flatten,omitempty" yaml:"x-flatten,omitempty"`
	// DerivedFrom is a field path collected across all documents
	// (x-derived-from), e.g. "commands[].c1".
	DerivedFrom string `json:"x-derived-from,omitempty" yaml:"x-derived-from,omitempty"`
	// DerivedUnique deduplicates derived values before sorting (x-derived-unique).
	DerivedUnique bool `json:"x-derived-unique,omitempty" yaml:"x-derived-unique,omitempty"`
	// Filter is an embedded query applied to the node's value (x-filter).
	Filter string `json:"x-filter,omitempty" yaml:"x-filter,omitempty"`
}

// Annotated reports whether the node carries any directive the engine
// must act on.
func (n *Node) Annotated() bool {
	if n == nil {
		return false
	}
	return n.Part || n.Flatten != "" || n.DerivedFrom != "" || n.DerivedUnique || n.Filter != "" || n.Default != nil
}
