package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/agentic-research/loom/internal/logger"
)

// Report describes one driven run: which commands executed in order,
// which stages completed, how long the run took, and the final state.
type Report struct {
	Executed []string
	Stages   []StateKind
	Elapsed  time.Duration
	Final    State
}

// Runner drives the command sequence end-to-end under a time budget.
// The budget is checked only between commands: a long-running command can
// overrun it by up to its own duration, and callers must tolerate that.
type Runner struct {
	commands []Command
	budget   time.Duration
}

// NewRunner builds a runner over cmds with the given budget. A zero
// budget means unbounded.
func NewRunner(cmds []Command, budget time.Duration) *Runner {
	return &Runner{commands: cmds, budget: budget}
}

// DefaultCommands wires the canonical command sequence from the
// collaborators.
func DefaultCommands(
	loader SchemaLoader,
	resolver TemplateResolver,
	transformer DocumentTransformer,
	preparer DataPreparer,
	extractor ItemsExtractor,
	renderer OutputRenderer,
) []Command {
	return []Command{
		InitializeCommand{},
		LoadSchemaCommand{Loader: loader},
		ResolveTemplateCommand{Resolver: resolver},
		ProcessDocumentsCommand{Transformer: transformer},
		PrepareDataCommand{Preparer: preparer, Extractor: extractor},
		RenderOutputCommand{Renderer: renderer},
	}
}

// Run drives the pipeline from a fresh Initializing state until a
// terminal state, the budget elapses, or ctx is cancelled. Expected
// failures surface in the final Failed state; the returned error is
// reserved for configuration problems.
func (r *Runner) Run(ctx context.Context, cfg Config) (Report, error) {
	start := time.Now()
	var deadline time.Time
	if r.budget > 0 {
		deadline = start.Add(r.budget)
	}

	var report Report
	state := State(NewInitializing(cfg))

	for !Terminal(state) {
		if ctx.Err() != nil {
			logger.Logger.Debugw("run cancelled", "state", state.Kind())
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			logger.Logger.Warnw("run budget elapsed", "state", state.Kind(), "budget", r.budget)
			break
		}

		cmd := r.commandFor(state)
		if cmd == nil {
			report.Elapsed = time.Since(start)
			report.Final = state
			return report, errors.Newf("no command can execute from state %q", state.Kind())
		}

		next, err := r.execute(ctx, cmd, state)
		if err != nil {
			report.Elapsed = time.Since(start)
			report.Final = state
			return report, err
		}

		report.Executed = append(report.Executed, cmd.Name())
		report.Stages = append(report.Stages, state.Kind())
		logger.Logger.Debugw("stage completed", "command", cmd.Name(), "from", state.Kind(), "to", next.Kind())
		state = next
	}

	report.Elapsed = time.Since(start)
	report.Final = state
	return report, nil
}

func (r *Runner) commandFor(s State) Command {
	for _, c := range r.commands {
		if c.CanExecute(s) {
			return c
		}
	}
	return nil
}

// execute invokes one command, converting any escaping panic into a
// Failed state so no command lets an exception escape the boundary.
func (r *Runner) execute(ctx context.Context, cmd Command, s State) (next State, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Logger.Errorw("command panicked", "command", cmd.Name(), "state", s.Kind(), "panic", p)
			next = newFailed(configOf(s), s.Kind(), errors.Newf("command %q panicked: %v", cmd.Name(), p), partialFor(s))
			err = nil
		}
	}()
	return cmd.Execute(ctx, s)
}

// configOf extracts the run config from any state variant.
func configOf(s State) Config {
	switch st := s.(type) {
	case Initializing:
		return st.Config
	case SchemaLoading:
		return st.Config
	case TemplateResolving:
		return st.Config
	case DocumentProcessing:
		return st.Config
	case DataPreparing:
		return st.Config
	case OutputRendering:
		return st.Config
	case Completed:
		return st.Config
	case Failed:
		return st.Config
	default:
		return Config{}
	}
}

// partialFor snapshots exactly what a state variant had legitimately
// computed, for failures raised at its boundary.
func partialFor(s State) PartialData {
	switch st := s.(type) {
	case TemplateResolving:
		return partialSchema(st.Schema)
	case DocumentProcessing:
		return partialTemplates(st.Schema, st.Templates)
	case DataPreparing:
		return partialDocuments(st.Schema, st.Templates, st.Documents)
	case OutputRendering:
		return partialPrepared(st.Schema, st.Templates, st.Documents, st.MainData, st.Prepared, st.ItemsData)
	default:
		return partialNone()
	}
}
