package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/config"
	"github.com/agentic-research/loom/internal/directive"
	"github.com/agentic-research/loom/internal/journal"
	"github.com/agentic-research/loom/internal/logger"
	"github.com/agentic-research/loom/internal/pipeline"
	"github.com/agentic-research/loom/internal/render"
	"github.com/agentic-research/loom/internal/schema"
	"github.com/agentic-research/loom/internal/source"
)

var (
	schemaPath        string
	templatePath      string
	itemsTemplatePath string
	outputPath        string
	outputFormat      string
	inputPatterns     []string
	requiredFields    []string
	fieldPatterns     []string
	budget            time.Duration
	journalPath       string
	verbose           bool
	jsonLogs          bool
	filterFirst       bool
)

func init() {
	rootCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "Path to the schema document")
	rootCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Main template path (falls back to the schema's x-template)")
	rootCmd.Flags().StringVar(&itemsTemplatePath, "items-template", "", "Items template path (falls back to x-items-template)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Rendered output path")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: json|yaml|xml|markdown")
	rootCmd.Flags().StringSliceVarP(&inputPatterns, "input", "i", nil, "Input document glob (repeatable)")
	rootCmd.Flags().StringSliceVar(&requiredFields, "require", nil, "Metadata field every document must carry (repeatable)")
	rootCmd.Flags().StringArrayVar(&fieldPatterns, "field-pattern", nil, "field=regex validation rule (repeatable)")
	rootCmd.Flags().DurationVar(&budget, "budget", 0, "Wall-time budget for the run (0 = unbounded)")
	rootCmd.Flags().StringVar(&journalPath, "journal", "", "Record the run in this SQLite journal")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging and partial-data dumps")
	rootCmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Machine-readable log output")
	rootCmd.Flags().BoolVar(&filterFirst, "filter-first", false, "Run filter directives before structural rewrites")
}

var rootCmd = &cobra.Command{
	Use:   "loom [inputs...]",
	Short: "Loom: schema-directed document transformation",
	Long: `Loom reads documents carrying structured metadata blocks, applies the
schema's directives (flatten, derive, filter, part extraction) across the
document set, and renders the aggregate through templates into JSON, YAML,
XML or Markdown output.`,
	Args: cobra.ArbitraryArgs,
	RunE: runPipeline,
}

// Execute is the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(verbose, jsonLogs || settings.JSONLogs); err != nil {
		return err
	}

	patterns := append([]string{}, inputPatterns...)
	patterns = append(patterns, args...)
	for i, p := range patterns {
		patterns[i] = mustAbs(p)
	}

	format := outputFormat
	if format == "" {
		format = settings.OutputFormat
	}

	rules, err := parseFieldPatterns(fieldPatterns)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		SchemaPath:        mustAbs(schemaPath),
		TemplatePath:      absIfSet(templatePath),
		ItemsTemplatePath: absIfSet(itemsTemplatePath),
		InputPatterns:     patterns,
		OutputPath:        mustAbs(outputPath),
		OutputFormat:      pipeline.Format(format),
		RequiredFields:    requiredFields,
		FieldPatterns:     rules,
		Verbose:           verbose,
	}

	ordering := directive.DefaultOrdering
	if filterFirst {
		ordering = directive.FilterFirstOrdering
	}
	engine := directive.NewEngine(ordering, directive.JSONPathFilter{})

	fsys := osfs.New("/")
	commands := pipeline.DefaultCommands(
		schema.NewLoader(fsys),
		schema.TemplateResolver{},
		source.NewTransformer(fsys, settings.Workers),
		engine,
		engine,
		render.NewRenderer(fsys),
	)

	runBudget := budget
	if runBudget == 0 && settings.BudgetSeconds > 0 {
		runBudget = time.Duration(settings.BudgetSeconds) * time.Second
	}

	runner := pipeline.NewRunner(commands, runBudget)
	report, err := runner.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	recordRun(settings, cfg, report)
	return reportOutcome(report)
}

func recordRun(settings *config.Settings, cfg pipeline.Config, report pipeline.Report) {
	path := journalPath
	if path == "" {
		path = settings.JournalPath
	}
	if path == "" {
		return
	}
	store, err := journal.Open(mustAbs(path))
	if err != nil {
		logger.Logger.Warnw("journal unavailable", "path", path, "error", err)
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.RecordRun(cfg, report); err != nil {
		logger.Logger.Warnw("journal write failed", "error", err)
	}
}

func reportOutcome(report pipeline.Report) error {
	if report.Final == nil {
		return fmt.Errorf("run stopped without a final state")
	}
	switch final := report.Final.(type) {
	case pipeline.Completed:
		fmt.Printf("Done in %v: %s\n", report.Elapsed.Round(time.Millisecond), final.OutputPath)
		return nil
	case pipeline.Failed:
		fmt.Printf("Failed during %s after %v: %v\n", final.Stage, report.Elapsed.Round(time.Millisecond), final.Err)
		if verbose {
			fmt.Printf("Partial data (%s):\n%s\n", final.Partial.Kind, oj.JSON(partialSummary(final.Partial), 2))
		}
		return fmt.Errorf("pipeline failed during %s: %w", final.Stage, final.Err)
	default:
		return fmt.Errorf("run stopped in state %q (budget elapsed or cancelled) after commands: %s",
			report.Final.Kind(), strings.Join(report.Executed, ", "))
	}
}

// partialSummary shapes the snapshot for human consumption: full data
// trees, but document bodies reduced to their origin paths.
func partialSummary(p pipeline.PartialData) map[string]any {
	out := map[string]any{"kind": string(p.Kind)}
	if p.Schema != nil {
		out["schemaVersion"] = p.Schema.Version
	}
	if p.Templates != nil {
		out["templatePath"] = p.Templates.TemplatePath
		out["outputFormat"] = string(p.Templates.OutputFormat)
	}
	if p.Documents != nil {
		paths := make([]string, len(p.Documents))
		for i, d := range p.Documents {
			paths[i] = d.Path
		}
		out["documents"] = paths
	}
	if p.MainData != nil {
		out["mainData"] = p.MainData
	}
	if p.Prepared != nil {
		out["prepared"] = p.Prepared
	}
	if p.ItemsData != nil {
		out["itemsData"] = p.ItemsData
	}
	return out
}

func parseFieldPatterns(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(specs))
	for _, s := range specs {
		field, expr, ok := strings.Cut(s, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("bad --field-pattern %q, want field=regex", s)
		}
		out[field] = expr
	}
	return out, nil
}

func mustAbs(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func absIfSet(p string) string {
	if p == "" {
		return ""
	}
	return mustAbs(p)
}
