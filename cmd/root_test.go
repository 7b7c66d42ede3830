package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
	"github.com/agentic-research/loom/internal/pipeline"
)

func TestParseFieldPatterns(t *testing.T) {
	out, err := parseFieldPatterns([]string{"version=^v\\d+$", "name=.+"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"version": "^v\\d+$", "name": ".+"}, out)

	out, err = parseFieldPatterns(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = parseFieldPatterns([]string{"no-equals-here"})
	require.Error(t, err)

	_, err = parseFieldPatterns([]string{"=bare"})
	require.Error(t, err)
}

func TestPartialSummary_ShrinksDocuments(t *testing.T) {
	p := pipeline.PartialData{
		Kind:   pipeline.PartialDocumentsProcessed,
		Schema: &api.Schema{Version: "1"},
		Templates: &pipeline.TemplateResolution{
			TemplatePath: "/t.tmpl",
			OutputFormat: pipeline.FormatJSON,
		},
		Documents: []frontmatter.Document{
			{Path: "/docs/a.md"},
			{Path: "/docs/b.md"},
		},
	}

	out := partialSummary(p)
	assert.Equal(t, "documents-processed", out["kind"])
	assert.Equal(t, "1", out["schemaVersion"])
	assert.Equal(t, "/t.tmpl", out["templatePath"])
	assert.Equal(t, []string{"/docs/a.md", "/docs/b.md"}, out["documents"])
	// Body text never reaches the summary.
	assert.NotContains(t, out, "mainData")
}

func TestPartialSummary_NoData(t *testing.T) {
	out := partialSummary(pipeline.PartialData{Kind: pipeline.PartialNone})
	assert.Equal(t, map[string]any{"kind": "no-data"}, out)
}
