package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".minder"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".minder", "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, cfg.Limits.MaxIterations)
	assert.Equal(t, DefaultIterationPauseSeconds, cfg.Limits.IterationPauseSeconds)
	assert.Equal(t, DefaultAgentCommand, cfg.Agent.Command)
	assert.Empty(t, cfg.Agent.ExtraArgs)
}

func TestLoad_ValidFile(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `
limits:
  max_iterations: 50
  iteration_pause_seconds: 10
agent:
  command: custom-agent
  extra_args:
    - --verbose
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Limits.MaxIterations)
	assert.Equal(t, 10, cfg.Limits.IterationPauseSeconds)
	assert.Equal(t, "custom-agent", cfg.Agent.Command)
	assert.Equal(t, []string{"--verbose"}, cfg.Agent.ExtraArgs)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `
limits:
  max_iterations: 7
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Limits.MaxIterations)
	assert.Equal(t, DefaultIterationPauseSeconds, cfg.Limits.IterationPauseSeconds)
	assert.Equal(t, DefaultAgentCommand, cfg.Agent.Command)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "limits: [not: a: mapping")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "zero max iterations",
			content: `
limits:
  max_iterations: 0
`,
			field: "limits.max_iterations",
		},
		{
			name: "negative max iterations",
			content: `
limits:
  max_iterations: -5
`,
			field: "limits.max_iterations",
		},
		{
			name: "negative pause",
			content: `
limits:
  iteration_pause_seconds: -1
`,
			field: "limits.iteration_pause_seconds",
		},
		{
			name: "empty agent command",
			content: `
agent:
  command: ""
`,
			field: "agent.command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := writeConfig(t, tt.content)

			_, err := Load(dir)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestIsValidationError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidationError(ValidationError{Field: "f", Message: "m"}))
	assert.False(t, IsValidationError(os.ErrNotExist))
	assert.False(t, IsValidationError(nil))
}
