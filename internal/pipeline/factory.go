package pipeline

import (
	"time"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
)

// State constructors. Every transition goes through one of these so the
// stage start-time is always stamped and variant fields are always
// populated together.

func NewInitializing(cfg Config) Initializing {
	return Initializing{stage: stage{startedAt: time.Now()}, Config: cfg}
}

func newSchemaLoading(cfg Config) SchemaLoading {
	return SchemaLoading{stage: stage{startedAt: time.Now()}, Config: cfg}
}

func newTemplateResolving(cfg Config, s *api.Schema) TemplateResolving {
	return TemplateResolving{stage: stage{startedAt: time.Now()}, Config: cfg, Schema: s}
}

func newDocumentProcessing(cfg Config, s *api.Schema, res TemplateResolution) DocumentProcessing {
	return DocumentProcessing{stage: stage{startedAt: time.Now()}, Config: cfg, Schema: s, Templates: res}
}

func newDataPreparing(cfg Config, s *api.Schema, res TemplateResolution, docs []frontmatter.Document) DataPreparing {
	return DataPreparing{
		stage:     stage{startedAt: time.Now()},
		Config:    cfg,
		Schema:    s,
		Templates: res,
		Documents: docs,
	}
}

func newOutputRendering(prev DataPreparing, main []any, prepared map[string]any, items []any) OutputRendering {
	return OutputRendering{
		stage:     stage{startedAt: time.Now()},
		Config:    prev.Config,
		Schema:    prev.Schema,
		Templates: prev.Templates,
		Documents: prev.Documents,
		MainData:  main,
		Prepared:  prepared,
		ItemsData: items,
	}
}

func newCompleted(cfg Config) Completed {
	return Completed{stage: stage{startedAt: time.Now()}, Config: cfg, OutputPath: cfg.OutputPath}
}

func newFailed(cfg Config, at StateKind, err error, partial PartialData) Failed {
	return Failed{stage: stage{startedAt: time.Now()}, Config: cfg, Stage: at, Err: err, Partial: partial}
}
