// Package config loads and validates the feedbackd configuration with the
// precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// LLMConfig holds settings for the chat-completions backend.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "deepseek" or "openai"
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RatePerSec  float64       `yaml:"rate_per_sec"` // client-side request rate limit, 0 disables
}

// CheckstyleConfig holds settings for the analysis pipeline.
type CheckstyleConfig struct {
	JavaBin    string        `yaml:"java_bin"`
	JarName    string        `yaml:"jar_name"`    // resolved under ToolsDir
	ConfigName string        `yaml:"config_name"` // resolved under ToolsDir
	Timeout    time.Duration `yaml:"timeout"`
	MaxFetchMB int           `yaml:"max_fetch_mb"` // download size cap
}

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	ListenAddr string `yaml:"listen"`
	DataDir    string `yaml:"data_dir"`
	DBPath     string `yaml:"db_path"`
	RedisAddr  string `yaml:"redis_addr"` // empty disables the Redis session cache
	APIToken   string `yaml:"api_token"`  // empty disables bearer auth

	LLM        LLMConfig        `yaml:"llm"`
	Checkstyle CheckstyleConfig `yaml:"checkstyle"`

	AgentMaxSteps   int           `yaml:"agent_max_steps"`
	CallbackTimeout time.Duration `yaml:"callback_timeout"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	JobWorkers      int           `yaml:"job_workers"`

	RateLimitEnabled bool `yaml:"rate_limit_enabled"`
	RateLimitRPM     int  `yaml:"rate_limit_rpm"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	TracingExporter string `yaml:"tracing_exporter"` // "grpc" or "http"

	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`

	Version string `yaml:"-"`
}

// Directory names under DataDir, fixed by the deployment layout.
const (
	downloadsDirName = "downloads"
	reportsDirName   = "reports"
	templatesDirName = "templates"
	toolsDirName     = "tools"
)

// DownloadsDir returns the directory submission archives are fetched into.
func (c AppConfig) DownloadsDir() string { return filepath.Join(c.DataDir, downloadsDirName) }

// ReportsDir returns the directory rendered analysis reports are published to.
func (c AppConfig) ReportsDir() string { return filepath.Join(c.DataDir, reportsDirName) }

// TemplatesDir returns the directory report templates are loaded from.
func (c AppConfig) TemplatesDir() string { return filepath.Join(c.DataDir, templatesDirName) }

// ToolsDir returns the directory the Checkstyle jar and config live in.
func (c AppConfig) ToolsDir() string { return filepath.Join(c.DataDir, toolsDirName) }

// JarPath returns the full path to the Checkstyle jar.
func (c AppConfig) JarPath() string { return filepath.Join(c.ToolsDir(), c.Checkstyle.JarName) }

// CheckstyleConfigPath returns the full path to the Checkstyle rules file.
func (c AppConfig) CheckstyleConfigPath() string {
	return filepath.Join(c.ToolsDir(), c.Checkstyle.ConfigName)
}

// Validate checks invariants that would make the daemon misbehave at runtime.
func (c AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %f out of range [0,2]", c.LLM.Temperature)
	}
	if c.AgentMaxSteps <= 0 {
		return fmt.Errorf("agent max steps must be positive, got %d", c.AgentMaxSteps)
	}
	if c.JobWorkers <= 0 {
		return fmt.Errorf("job workers must be positive, got %d", c.JobWorkers)
	}
	switch c.LLM.Provider {
	case "deepseek", "openai":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	return nil
}

// EnsureDataDirs creates the analysis directory layout if missing.
func EnsureDataDirs(c AppConfig) error {
	for _, dir := range []string{c.DownloadsDir(), c.ReportsDir(), c.TemplatesDir(), c.ToolsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
