package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Command is one pipeline stage. CanExecute answers whether the command
// applies to the exact state kind; Execute performs the stage's work and
// returns the next state. Expected domain failures are folded into a
// Failed state so every caller sees a uniform State result; only config
// and command/state mismatches come back as out-of-band errors.
type Command interface {
	Name() string
	CanExecute(s State) bool
	Execute(ctx context.Context, s State) (State, error)
}

// InitializeCommand validates config completeness before any work runs.
type InitializeCommand struct{}

func (InitializeCommand) Name() string { return "initialize" }

func (InitializeCommand) CanExecute(s State) bool { return s.Kind() == KindInitializing }

func (c InitializeCommand) Execute(_ context.Context, s State) (State, error) {
	st, ok := s.(Initializing)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}
	if err := st.Config.Validate(); err != nil {
		// Initialization-time config errors are returned directly; the
		// pipeline has not started yet.
		return nil, err
	}
	return newSchemaLoading(st.Config), nil
}

// LoadSchemaCommand loads and structurally validates the schema.
type LoadSchemaCommand struct {
	Loader SchemaLoader
}

func (LoadSchemaCommand) Name() string { return "load-schema" }

func (LoadSchemaCommand) CanExecute(s State) bool { return s.Kind() == KindSchemaLoading }

func (c LoadSchemaCommand) Execute(_ context.Context, s State) (State, error) {
	st, ok := s.(SchemaLoading)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}
	schema, err := c.Loader.Load(st.Config.SchemaPath)
	if err != nil {
		// Expected domain failures (not found, malformed) fold into the
		// failed state rather than escaping as errors.
		return newFailed(st.Config, KindSchemaLoading, err, partialNone()), nil
	}
	return newTemplateResolving(st.Config, schema), nil
}

// ResolveTemplateCommand asks the resolver for template paths and the
// output format. Template path and format are mandatory; items path is
// optional.
type ResolveTemplateCommand struct {
	Resolver TemplateResolver
}

func (ResolveTemplateCommand) Name() string { return "resolve-template" }

func (ResolveTemplateCommand) CanExecute(s State) bool { return s.Kind() == KindTemplateResolving }

func (c ResolveTemplateCommand) Execute(_ context.Context, s State) (State, error) {
	st, ok := s.(TemplateResolving)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}
	res, err := c.Resolver.Resolve(st.Schema, st.Config)
	if err == nil {
		switch {
		case res.TemplatePath == "":
			err = errors.New("template resolution produced an empty template path")
		case res.OutputFormat == "":
			err = errors.New("template resolution produced an empty output format")
		case !ValidFormat(res.OutputFormat):
			err = errors.Newf("template resolution produced unsupported format %q", res.OutputFormat)
		}
	}
	if err != nil {
		return newFailed(st.Config, KindTemplateResolving, err, partialSchema(st.Schema)), nil
	}
	return newDocumentProcessing(st.Config, st.Schema, res), nil
}

// ProcessDocumentsCommand enumerates the inputs and extracts per-document
// metadata.
type ProcessDocumentsCommand struct {
	Transformer DocumentTransformer
}

func (ProcessDocumentsCommand) Name() string { return "process-documents" }

func (ProcessDocumentsCommand) CanExecute(s State) bool { return s.Kind() == KindDocumentProcessing }

func (c ProcessDocumentsCommand) Execute(ctx context.Context, s State) (State, error) {
	st, ok := s.(DocumentProcessing)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}
	rules := ValidationRules{
		RequiredFields: st.Config.RequiredFields,
		FieldPatterns:  st.Config.FieldPatterns,
	}
	docs, err := c.Transformer.Transform(ctx, st.Config.InputPatterns, rules, st.Schema)
	if err != nil {
		return newFailed(st.Config, KindDocumentProcessing, err, partialTemplates(st.Schema, st.Templates)), nil
	}
	return newDataPreparing(st.Config, st.Schema, st.Templates, docs), nil
}

// PrepareDataCommand runs the directive passes across the document set
// and, when an items template resolved, extracts the items data.
type PrepareDataCommand struct {
	Preparer  DataPreparer
	Extractor ItemsExtractor
}

func (PrepareDataCommand) Name() string { return "prepare-data" }

func (PrepareDataCommand) CanExecute(s State) bool { return s.Kind() == KindDataPreparing }

func (c PrepareDataCommand) Execute(_ context.Context, s State) (State, error) {
	st, ok := s.(DataPreparing)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}

	fail := func(err error) (State, error) {
		return newFailed(st.Config, KindDataPreparing, err, partialDocuments(st.Schema, st.Templates, st.Documents)), nil
	}

	main, prepared, err := c.Preparer.Prepare(st.Schema, st.Documents)
	if err != nil {
		return fail(err)
	}
	if len(main) == 0 {
		return fail(errors.New("prepared main data is empty"))
	}

	var items []any
	if st.Templates.ItemsTemplatePath != "" {
		items, err = c.Extractor.ExtractItems(st.Schema, st.Documents)
		if err != nil {
			return fail(err)
		}
		if items == nil {
			// Items data, when an items template resolved, is always an
			// array — possibly empty, never absent.
			items = []any{}
		}
	}
	return newOutputRendering(st, main, prepared, items), nil
}

// RenderOutputCommand delegates to the external renderer and completes
// the run on success.
type RenderOutputCommand struct {
	Renderer OutputRenderer
}

func (RenderOutputCommand) Name() string { return "render-output" }

func (RenderOutputCommand) CanExecute(s State) bool { return s.Kind() == KindOutputRendering }

func (c RenderOutputCommand) Execute(ctx context.Context, s State) (State, error) {
	st, ok := s.(OutputRendering)
	if !ok {
		return nil, mismatch(c.Name(), s)
	}
	err := c.Renderer.Render(ctx, RenderRequest{
		TemplatePath:      st.Templates.TemplatePath,
		ItemsTemplatePath: st.Templates.ItemsTemplatePath,
		MainData:          st.MainData,
		Prepared:          st.Prepared,
		ItemsData:         st.ItemsData,
		OutputPath:        st.Config.OutputPath,
		OutputFormat:      st.Templates.OutputFormat,
		Verbose:           st.Config.Verbose,
	})
	if err != nil {
		partial := partialPrepared(st.Schema, st.Templates, st.Documents, st.MainData, st.Prepared, st.ItemsData)
		return newFailed(st.Config, KindOutputRendering, err, partial), nil
	}
	return newCompleted(st.Config), nil
}
