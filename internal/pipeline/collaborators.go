package pipeline

import (
	"context"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
)

// Collaborator contracts the commands consume. Implementations live in
// internal/schema, internal/source, internal/directive and internal/render;
// cmd wires the defaults together.

// SchemaLoader loads and structurally validates a schema document.
type SchemaLoader interface {
	Load(path string) (*api.Schema, error)
}

// TemplateResolver decides the template paths and output format for a
// run, combining config overrides with the schema's bindings.
type TemplateResolver interface {
	Resolve(s *api.Schema, cfg Config) (TemplateResolution, error)
}

// ValidationRules are the per-document extraction checks.
type ValidationRules struct {
	RequiredFields []string
	FieldPatterns  map[string]string
}

// DocumentTransformer enumerates the inputs and extracts one metadata
// tree per document.
type DocumentTransformer interface {
	Transform(ctx context.Context, patterns []string, rules ValidationRules, s *api.Schema) ([]frontmatter.Document, error)
}

// DataPreparer runs the directive passes: per-document trees (main data)
// and the cross-document aggregate tree.
type DataPreparer interface {
	Prepare(s *api.Schema, docs []frontmatter.Document) (main []any, prepared map[string]any, err error)
}

// ItemsExtractor collects the per-item data for schema arrays marked for
// per-document extraction. Only consulted when an items template resolved.
type ItemsExtractor interface {
	ExtractItems(s *api.Schema, docs []frontmatter.Document) ([]any, error)
}

// RenderRequest is everything the renderer needs for one output.
type RenderRequest struct {
	TemplatePath      string
	ItemsTemplatePath string
	MainData          []any
	Prepared          map[string]any
	ItemsData         []any
	OutputPath        string
	OutputFormat      Format
	Verbose           bool
}

// OutputRenderer renders the templates and writes the formatted output.
type OutputRenderer interface {
	Render(ctx context.Context, req RenderRequest) error
}
