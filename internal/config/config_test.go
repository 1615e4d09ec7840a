package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.0.0").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8001", cfg.ListenAddr)
	assert.Equal(t, "analysis", cfg.DataDir)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.AgentMaxSteps)
	assert.Equal(t, 10*time.Second, cfg.CallbackTimeout)
	assert.Equal(t, "v1.0.0", cfg.Version)
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\ndata_dir: fromfile\n"), 0o644))

	t.Setenv("FBD_DATA", "fromenv")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr, "file value wins over default")
	assert.Equal(t, "fromenv", cfg.DataDir, "env value wins over file")
}

func TestLoaderRejectsUnknownFileKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_key: true\n"), 0o644))

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"bad listen", func(c *AppConfig) { c.ListenAddr = "no-port" }, "listen"},
		{"empty data dir", func(c *AppConfig) { c.DataDir = "" }, "data directory"},
		{"temperature too high", func(c *AppConfig) { c.LLM.Temperature = 2.5 }, "temperature"},
		{"zero agent steps", func(c *AppConfig) { c.AgentMaxSteps = 0 }, "agent max steps"},
		{"unknown provider", func(c *AppConfig) { c.LLM.Provider = "mystery" }, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "analysis")

	require.NoError(t, EnsureDataDirs(cfg))
	for _, dir := range []string{cfg.DownloadsDir(), cfg.ReportsDir(), cfg.TemplatesDir(), cfg.ToolsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("FBD_TEST_INT", "42")
	t.Setenv("FBD_TEST_BAD_INT", "forty-two")
	t.Setenv("FBD_TEST_FLOAT", "0.3")
	t.Setenv("FBD_TEST_BOOL", "true")
	t.Setenv("FBD_TEST_DUR", "90s")

	assert.Equal(t, 42, ParseInt("FBD_TEST_INT", 7))
	assert.Equal(t, 7, ParseInt("FBD_TEST_BAD_INT", 7))
	assert.Equal(t, 7, ParseInt("FBD_TEST_MISSING", 7))
	assert.InDelta(t, 0.3, ParseFloat("FBD_TEST_FLOAT", 0.0), 1e-9)
	assert.True(t, ParseBool("FBD_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, ParseDuration("FBD_TEST_DUR", time.Second))
}
