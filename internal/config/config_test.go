package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.ContextWindow)
	assert.Equal(t, 20, cfg.RetentionWindow)
	assert.Equal(t, 5000*time.Millisecond, cfg.EditBudget)
	assert.Equal(t, 3000*time.Millisecond, cfg.LLMTimeout)
	assert.Equal(t, 2, cfg.LLMMaxRetries)
	assert.Equal(t, 30000*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 60000*time.Millisecond, cfg.JanitorInterval)
	assert.Equal(t, "file", cfg.StoreBackend)
}

func withIsolatedHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmpDir, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmpDir, "state"))
	return tmpDir
}

func TestLoadDefaultsWithNoConfigFiles(t *testing.T) {
	withIsolatedHome(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.RetentionWindow)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
}

func TestLoadGlobalConfigOverridesDefaults(t *testing.T) {
	withIsolatedHome(t)

	globalDir := GetPaths().Config
	require.NoError(t, os.MkdirAll(globalDir, 0755))

	contents := `
retention_window: 40
llm_max_retries: 5
model: gpt-4o
`
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(contents), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.RetentionWindow)
	assert.Equal(t, 5, cfg.LLMMaxRetries)
	assert.Equal(t, "gpt-4o", cfg.Model)
	// Untouched keys keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoadProjectConfigOverridesGlobal(t *testing.T) {
	tmpDir := withIsolatedHome(t)

	globalDir := GetPaths().Config
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte("retention_window: 40\n"), 0644))

	projectDir := filepath.Join(tmpDir, "project", ".sessionengine")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte("retention_window: 15\n"), 0644))

	cfg, err := Load(filepath.Join(tmpDir, "project"))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.RetentionWindow)
}

func TestLoadMissingConfigFilesAreNotAnError(t *testing.T) {
	tmpDir := withIsolatedHome(t)

	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadProviderAPIKeyFromEnv(t *testing.T) {
	withIsolatedHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", cfg.Provider["anthropic"].APIKey)
}

func TestLoadEnvAPIKeyDoesNotOverrideConfigFile(t *testing.T) {
	withIsolatedHome(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	globalDir := GetPaths().Config
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	contents := `
provider:
  anthropic:
    api_key: sk-from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(contents), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.Provider["anthropic"].APIKey)
}

func TestLoadModelEnvOverride(t *testing.T) {
	withIsolatedHome(t)
	t.Setenv("SESSIONENGINE_MODEL", "claude-opus-4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude-opus-4", cfg.Model)
}

func TestSaveWritesConfigFile(t *testing.T) {
	tmpDir := withIsolatedHome(t)

	cfg := Default()
	cfg.RetentionWindow = 33
	cfg.Model = "gpt-4o"

	path := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "retention_window")
}
