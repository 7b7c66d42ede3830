package tests

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/internal/directive"
	"github.com/agentic-research/loom/internal/pipeline"
	"github.com/agentic-research/loom/internal/render"
	"github.com/agentic-research/loom/internal/schema"
	"github.com/agentic-research/loom/internal/source"
)

// testFixture is a complete in-memory workspace: schema, templates and
// source documents, with the real collaborators wired into the runner.
type testFixture struct {
	fs billy.Filesystem
}

const testSchema = `{
	"version": "1",
	"type": "object",
	"x-template": "/templates/main.tmpl",
	"properties": {
		"commands": {"type": "array", "x-part": true},
		"c1": {
			"type": "array",
			"x-derived-from": "commands[].c1",
			"x-derived-unique": true
		},
		"title": {"type": "string", "default": "command reference"}
	}
}`

const testTemplate = `{"title": {{quote .data.title}}, "c1": {{json .data.c1}}, "count": {{len .documents}}}`

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	fsys := memfs.New()
	files := map[string]string{
		"/schema.json":         testSchema,
		"/templates/main.tmpl": testTemplate,
		"/docs/advanced.md":    "---\nc1: adv\n---\nAdvanced commands.",
		"/docs/basics.md":      "---\nc1: basic\n---\nBasic commands.",
		"/docs/more.md":        "---\nc1: adv\n---\nMore advanced commands.",
	}
	for path, body := range files {
		require.NoError(t, util.WriteFile(fsys, path, []byte(body), 0o644))
	}
	return &testFixture{fs: fsys}
}

func (f *testFixture) run(t *testing.T, cfg pipeline.Config) pipeline.Report {
	t.Helper()
	engine := directive.NewEngine(directive.DefaultOrdering, directive.JSONPathFilter{})
	commands := pipeline.DefaultCommands(
		schema.NewLoader(f.fs),
		schema.TemplateResolver{},
		source.NewTransformer(f.fs, 2),
		engine,
		engine,
		render.NewRenderer(f.fs),
	)
	report, err := pipeline.NewRunner(commands, 0).Run(context.Background(), cfg)
	require.NoError(t, err)
	return report
}

func (f *testFixture) read(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := util.ReadFile(f.fs, path)
	require.NoError(t, err)
	return raw
}

func baseConfig() pipeline.Config {
	return pipeline.Config{
		SchemaPath:    "/schema.json",
		InputPatterns: []string{"/docs/*.md"},
		OutputPath:    "/out/result.json",
	}
}

func TestIntegration_DeriveUniqueJSON(t *testing.T) {
	f := newFixture(t)
	report := f.run(t, baseConfig())

	require.IsType(t, pipeline.Completed{}, report.Final)

	val, err := oj.Parse(f.read(t, "/out/result.json"))
	require.NoError(t, err)
	out := val.(map[string]any)

	// Duplicates collapse and the remainder sorts lexicographically.
	assert.Equal(t, []any{"adv", "basic"}, out["c1"])
	assert.Equal(t, "command reference", out["title"])
	assert.EqualValues(t, 3, out["count"])
}

func TestIntegration_SameTemplateRendersYAML(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.OutputPath = "/out/result.yaml"
	cfg.OutputFormat = pipeline.FormatYAML
	report := f.run(t, cfg)

	require.IsType(t, pipeline.Completed{}, report.Final)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(f.read(t, "/out/result.yaml"), &out))
	assert.Equal(t, []any{"adv", "basic"}, out["c1"])
	assert.Equal(t, "command reference", out["title"])
}

func TestIntegration_MissingSchemaFailsWithEmptyPartial(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.SchemaPath = "/nope.json"
	report := f.run(t, cfg)

	failed, ok := report.Final.(pipeline.Failed)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindSchemaLoading, failed.Stage)
	assert.Equal(t, pipeline.PartialNone, failed.Partial.Kind)
}

func TestIntegration_NoDocumentsFailsAfterProcessing(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.InputPatterns = []string{"/empty/*.md"}
	report := f.run(t, cfg)

	failed, ok := report.Final.(pipeline.Failed)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindDataPreparing, failed.Stage)
	assert.Equal(t, pipeline.PartialDocumentsProcessed, failed.Partial.Kind)
	assert.Empty(t, failed.Partial.Documents)
	assert.Nil(t, failed.Partial.MainData)
}

func TestIntegration_RequiredFieldRejectsDocument(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, util.WriteFile(f.fs, "/docs/stray.md", []byte("---\nother: 1\n---\n"), 0o644))

	cfg := baseConfig()
	cfg.RequiredFields = []string{"c1"}
	report := f.run(t, cfg)

	failed, ok := report.Final.(pipeline.Failed)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindDocumentProcessing, failed.Stage)
	assert.Contains(t, failed.Err.Error(), "/docs/stray.md")
	// Templates resolved before the failure; documents did not.
	assert.Equal(t, pipeline.PartialTemplateResolved, failed.Partial.Kind)
}

func TestIntegration_ItemsTemplate(t *testing.T) {
	f := newFixture(t)
	itemsSchema := `{
		"type": "object",
		"x-template": "/templates/list.tmpl",
		"x-items-template": "/templates/item.tmpl",
		"properties": {
			"commands": {"type": "array", "x-part": true}
		}
	}`
	require.NoError(t, util.WriteFile(f.fs, "/schema-items.json", []byte(itemsSchema), 0o644))
	require.NoError(t, util.WriteFile(f.fs, "/templates/item.tmpl", []byte(`{{json .c1}}`), 0o644))
	require.NoError(t, util.WriteFile(f.fs, "/templates/list.tmpl",
		[]byte(`[{{range $i, $it := .items}}{{if $i}},{{end}}{{$it}}{{end}}]`), 0o644))

	cfg := baseConfig()
	cfg.SchemaPath = "/schema-items.json"
	report := f.run(t, cfg)

	require.IsType(t, pipeline.Completed{}, report.Final)

	val, err := oj.Parse(f.read(t, "/out/result.json"))
	require.NoError(t, err)
	assert.Equal(t, []any{"adv", "basic", "adv"}, val)
}

func TestIntegration_MarkdownReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, util.WriteFile(f.fs, "/templates/report.tmpl",
		[]byte("# {{.data.title}}\n\n{{range .data.c1}}- {{.}}\n{{end}}"), 0o644))

	cfg := baseConfig()
	cfg.TemplatePath = "/templates/report.tmpl"
	cfg.OutputPath = "/out/report.md"
	cfg.OutputFormat = pipeline.FormatMarkdown
	report := f.run(t, cfg)

	require.IsType(t, pipeline.Completed{}, report.Final)
	assert.Equal(t, "# command reference\n\n- adv\n- basic\n", string(f.read(t, "/out/report.md")))
}
