package pipeline

import (
	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
)

// PartialKind names how far a failed run legitimately progressed.
type PartialKind string

const (
	PartialNone               PartialKind = "no-data"
	PartialSchemaLoaded       PartialKind = "schema-loaded"
	PartialTemplateResolved   PartialKind = "template-resolved"
	PartialDocumentsProcessed PartialKind = "documents-processed"
	PartialDataPrepared       PartialKind = "data-prepared"
)

// PartialData is the snapshot carried by a Failed state. Its shape is
// constrained by Kind: a field is set iff the kind licenses it — never
// more, never less. Construct only through the partial* helpers.
type PartialData struct {
	Kind      PartialKind
	Schema    *api.Schema            // schema-loaded and later
	Templates *TemplateResolution    // template-resolved and later
	Documents []frontmatter.Document // documents-processed and later
	MainData  []any                  // data-prepared only
	Prepared  map[string]any         // data-prepared only
	ItemsData []any                  // data-prepared only
}

func partialNone() PartialData {
	return PartialData{Kind: PartialNone}
}

func partialSchema(s *api.Schema) PartialData {
	return PartialData{Kind: PartialSchemaLoaded, Schema: s}
}

func partialTemplates(s *api.Schema, res TemplateResolution) PartialData {
	return PartialData{Kind: PartialTemplateResolved, Schema: s, Templates: &res}
}

func partialDocuments(s *api.Schema, res TemplateResolution, docs []frontmatter.Document) PartialData {
	return PartialData{
		Kind:      PartialDocumentsProcessed,
		Schema:    s,
		Templates: &res,
		Documents: docs,
	}
}

func partialPrepared(s *api.Schema, res TemplateResolution, docs []frontmatter.Document, main []any, prepared map[string]any, items []any) PartialData {
	return PartialData{
		Kind:      PartialDataPrepared,
		Schema:    s,
		Templates: &res,
		Documents: docs,
		MainData:  main,
		Prepared:  prepared,
		ItemsData: items,
	}
}
