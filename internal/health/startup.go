package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/acadly/feedbackd/internal/config"
	"github.com/acadly/feedbackd/internal/log"
)

// PerformStartupChecks validates the environment before the server
// starts taking traffic.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := config.EnsureDataDirs(cfg); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.DownloadsDir(), cfg.ReportsDir(), cfg.TemplatesDir(), cfg.ToolsDir()} {
		if err := ensureWritableDir(logger, dir); err != nil {
			return fmt.Errorf("data directory check failed: %w", err)
		}
	}

	if err := checkListenAddr(cfg.ListenAddr); err != nil {
		return err
	}
	logger.Info().Str("addr", cfg.ListenAddr).Msg("listen address is valid")

	if err := checkLLMEndpoint(logger, cfg.LLM); err != nil {
		return err
	}
	logger.Info().Str(log.FieldBaseURL, cfg.LLM.BaseURL).Str(log.FieldModel, cfg.LLM.Model).Msg("LLM endpoint configured")

	if err := checkAnalyzer(logger, cfg); err != nil {
		return err
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func ensureWritableDir(logger zerolog.Logger, path string) error {
	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory not writable: %s: %w", path, err)
	}
	_ = os.Remove(probe)

	logger.Debug().Str(log.FieldPath, path).Msg("directory is writable")
	return nil
}

func checkListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}

// checkLLMEndpoint validates the upstream URL. A missing API key only
// makes LLM-backed routes fail at call time, so it warns instead of
// failing startup.
func checkLLMEndpoint(logger zerolog.Logger, cfg config.LLMConfig) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid LLM base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("LLM base URL scheme must be http or https, got: %s", u.Scheme)
	}
	if cfg.APIKey == "" {
		logger.Warn().Str(log.FieldBaseURL, cfg.BaseURL).Msg("LLM API key not configured; feedback routes will fail")
	}
	return nil
}

// checkAnalyzer verifies the Checkstyle toolchain. A missing jar only
// disables code analysis, so it warns instead of failing startup.
func checkAnalyzer(logger zerolog.Logger, cfg config.AppConfig) error {
	if _, err := exec.LookPath(cfg.Checkstyle.JavaBin); err != nil {
		logger.Warn().Str("java_bin", cfg.Checkstyle.JavaBin).Msg("java binary not found; code analysis disabled")
		return nil
	}

	for _, path := range []string{cfg.JarPath(), cfg.CheckstyleConfigPath()} {
		f, err := os.Open(path) // #nosec G304 -- operator-configured tool path
		if err != nil {
			logger.Warn().Str(log.FieldPath, path).Msg("checkstyle file not readable; code analysis disabled")
			return nil
		}
		_ = f.Close()
	}

	logger.Info().Str(log.FieldPath, cfg.JarPath()).Msg("checkstyle toolchain available")
	return nil
}
