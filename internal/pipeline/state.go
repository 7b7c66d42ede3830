package pipeline

import (
	"time"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
)

// StateKind names a pipeline stage.
type StateKind string

const (
	KindInitializing       StateKind = "initializing"
	KindSchemaLoading      StateKind = "schema-loading"
	KindTemplateResolving  StateKind = "template-resolving"
	KindDocumentProcessing StateKind = "document-processing"
	KindDataPreparing      StateKind = "data-preparing"
	KindOutputRendering    StateKind = "output-rendering"
	KindCompleted          StateKind = "completed"
	KindFailed             StateKind = "failed"
)

// State is the tagged union of pipeline stages. Each variant carries
// exactly the data legitimately available at that stage, so an invalid
// stage/data combination cannot be constructed. States are immutable;
// the runner replaces them wholesale on every transition.
type State interface {
	Kind() StateKind
	StartedAt() time.Time
	isState()
}

// TemplateResolution is the outcome of template resolution: where the
// templates live and which format the output takes.
type TemplateResolution struct {
	TemplatePath      string
	ItemsTemplatePath string
	OutputFormat      Format
}

type stage struct {
	startedAt time.Time
}

func (s stage) StartedAt() time.Time { return s.startedAt }
func (stage) isState()               {}

// Initializing is the entry state: only the config exists.
type Initializing struct {
	stage
	Config Config
}

func (Initializing) Kind() StateKind { return KindInitializing }

// SchemaLoading follows successful config validation.
type SchemaLoading struct {
	stage
	Config Config
}

func (SchemaLoading) Kind() StateKind { return KindSchemaLoading }

// TemplateResolving holds the loaded schema.
type TemplateResolving struct {
	stage
	Config Config
	Schema *api.Schema
}

func (TemplateResolving) Kind() StateKind { return KindTemplateResolving }

// DocumentProcessing holds schema plus resolved template bindings.
type DocumentProcessing struct {
	stage
	Config    Config
	Schema    *api.Schema
	Templates TemplateResolution
}

func (DocumentProcessing) Kind() StateKind { return KindDocumentProcessing }

// DataPreparing holds the extracted documents. Main data does not exist
// yet; it is computed by the prepare-data command.
type DataPreparing struct {
	stage
	Config    Config
	Schema    *api.Schema
	Templates TemplateResolution
	Documents []frontmatter.Document
}

func (DataPreparing) Kind() StateKind { return KindDataPreparing }

// OutputRendering holds everything the renderer needs: the prepared
// aggregate tree and, when an items template was resolved, the items data.
type OutputRendering struct {
	stage
	Config    Config
	Schema    *api.Schema
	Templates TemplateResolution
	Documents []frontmatter.Document
	MainData  []any
	Prepared  map[string]any
	ItemsData []any
}

func (OutputRendering) Kind() StateKind { return KindOutputRendering }

// Completed is the terminal success state.
type Completed struct {
	stage
	Config     Config
	OutputPath string
}

func (Completed) Kind() StateKind { return KindCompleted }

// Failed is the terminal failure state, reachable from any non-terminal
// stage. It carries the triggering error, the stage that failed, and a
// snapshot of exactly what had been computed.
type Failed struct {
	stage
	Config  Config
	Stage   StateKind
	Err     error
	Partial PartialData
}

func (Failed) Kind() StateKind { return KindFailed }

// Terminal reports whether s admits no further transitions.
func Terminal(s State) bool {
	k := s.Kind()
	return k == KindCompleted || k == KindFailed
}
