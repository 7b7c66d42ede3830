package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp mirrors chdirTemp(t) for Go toolchains before 1.24.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	s, err := Load()
	require.NoError(t, err)
	assert.Empty(t, s.OutputFormat)
	assert.Zero(t, s.Workers)
	assert.Zero(t, s.BudgetSeconds)
	assert.Empty(t, s.JournalPath)
	assert.False(t, s.JSONLogs)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LOOM_WORKERS", "4")
	t.Setenv("LOOM_OUTPUT_FORMAT", "yaml")
	t.Setenv("LOOM_JSON_LOGS", "true")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, "yaml", s.OutputFormat)
	assert.True(t, s.JSONLogs)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("loom.yaml", []byte("workers: 8\njournal_path: /tmp/loom.db\n"), 0o644))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, "/tmp/loom.db", s.JournalPath)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("loom.yaml", []byte("workers: [unclosed\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
}
