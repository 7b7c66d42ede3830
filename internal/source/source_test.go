package source

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/loom/internal/pipeline"
)

func writeDocs(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for path, body := range files {
		require.NoError(t, util.WriteFile(fsys, path, []byte(body), 0o644))
	}
	return fsys
}

func TestTransform_GlobAndExtract(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nc1: adv\n---\nbody a",
		"/docs/b.md": "---\nc1: basic\n---\nbody b",
		"/docs/skip.txt": "no metadata here",
	})

	tr := NewTransformer(fsys, 2)
	docs, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, pipeline.ValidationRules{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Enumeration is sorted, so the order is stable across runs.
	assert.Equal(t, "/docs/a.md", docs[0].Path)
	v, err := docs[0].Meta.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "adv", v)
	assert.Equal(t, "body a", docs[0].Body)
}

func TestTransform_LiteralPathWithoutGlob(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/one.md": "---\nname: solo\n---\n",
	})

	tr := NewTransformer(fsys, 0)
	docs, err := tr.Transform(context.Background(), []string{"/one.md"}, pipeline.ValidationRules{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Meta.Has("name"))
}

func TestTransform_DuplicateMatchesDeduped(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nx: 1\n---\n",
	})

	tr := NewTransformer(fsys, 1)
	docs, err := tr.Transform(context.Background(), []string{"/docs/*.md", "/docs/a.md"}, pipeline.ValidationRules{}, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestTransform_ZeroMatchesIsNotAnError(t *testing.T) {
	tr := NewTransformer(memfs.New(), 1)
	docs, err := tr.Transform(context.Background(), []string{"/nope/*.md"}, pipeline.ValidationRules{}, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTransform_RequiredFieldMissing(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nc1: adv\n---\n",
		"/docs/b.md": "---\nother: x\n---\n",
	})

	tr := NewTransformer(fsys, 2)
	rules := pipeline.ValidationRules{RequiredFields: []string{"c1"}}
	_, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, rules, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "/docs/b.md")
	assert.Contains(t, err.Error(), `"c1"`)
}

func TestTransform_FieldPatternMismatch(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nversion: v1.2\n---\n",
		"/docs/b.md": "---\nversion: latest\n---\n",
	})

	tr := NewTransformer(fsys, 2)
	rules := pipeline.ValidationRules{FieldPatterns: map[string]string{"version": `^v\d+\.\d+$`}}
	_, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, rules, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "latest")
}

func TestTransform_FieldPatternCoercesNonStrings(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nlevel: 42\n---\n",
	})

	tr := NewTransformer(fsys, 1)
	rules := pipeline.ValidationRules{FieldPatterns: map[string]string{"level": `^\d+$`}}
	docs, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, rules, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestTransform_BadPatternRegexp(t *testing.T) {
	tr := NewTransformer(memfs.New(), 1)
	rules := pipeline.ValidationRules{FieldPatterns: map[string]string{"f": `(`}}
	_, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, rules, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"f"`)
}

func TestTransform_MalformedMetadataBlock(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\n: [broken\n---\n",
	})

	tr := NewTransformer(fsys, 1)
	_, err := tr.Transform(context.Background(), []string{"/docs/*.md"}, pipeline.ValidationRules{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/docs/a.md")
}

func TestTransform_CancelledContext(t *testing.T) {
	fsys := writeDocs(t, map[string]string{
		"/docs/a.md": "---\nx: 1\n---\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTransformer(fsys, 1)
	_, err := tr.Transform(ctx, []string{"/docs/*.md"}, pipeline.ValidationRules{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
