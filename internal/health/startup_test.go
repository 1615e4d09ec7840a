package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadly/feedbackd/internal/config"
)

func startupConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		ListenAddr: "127.0.0.1:8080",
		DataDir:    filepath.Join(t.TempDir(), "data"),
		LLM: config.LLMConfig{
			Provider: "deepseek",
			BaseURL:  "https://api.deepseek.com",
			Model:    "deepseek-chat",
			APIKey:   "test-key",
		},
	}
}

func TestStartupChecksCreateDataLayout(t *testing.T) {
	cfg := startupConfig(t)
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	for _, dir := range []string{cfg.DownloadsDir(), cfg.ReportsDir(), cfg.TemplatesDir(), cfg.ToolsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestStartupChecksMissingAPIKeyIsNotFatal(t *testing.T) {
	cfg := startupConfig(t)
	cfg.LLM.APIKey = ""

	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestStartupChecksRejectBadListenAddr(t *testing.T) {
	cfg := startupConfig(t)
	cfg.ListenAddr = "no-port"

	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestStartupChecksRejectBadLLMScheme(t *testing.T) {
	cfg := startupConfig(t)
	cfg.LLM.BaseURL = "ftp://api.deepseek.com"

	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}
