package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader resolves configuration with the precedence ENV > file > defaults.
type Loader struct {
	path    string // optional YAML file path
	version string
}

// NewLoader creates a Loader. path may be empty, in which case only the
// environment and defaults contribute.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

func defaults() AppConfig {
	return AppConfig{
		ListenAddr: ":8001",
		DataDir:    "analysis",
		DBPath:     "feedbackd.db",
		LLM: LLMConfig{
			Provider:    "deepseek",
			BaseURL:     "https://api.deepseek.com/v1",
			Model:       "deepseek-chat",
			Temperature: 0.1,
			MaxTokens:   2000,
			Timeout:     60 * time.Second,
			MaxRetries:  3,
		},
		Checkstyle: CheckstyleConfig{
			JavaBin:    "java",
			JarName:    "checkstyle.jar",
			ConfigName: "checkstyle.xml",
			Timeout:    2 * time.Minute,
			MaxFetchMB: 64,
		},
		AgentMaxSteps:    10,
		CallbackTimeout:  10 * time.Second,
		SessionTTL:       30 * time.Minute,
		JobWorkers:       4,
		RateLimitEnabled: true,
		RateLimitRPM:     120,
		TracingExporter:  "http",
		LogLevel:         "info",
		LogService:       "feedbackd",
	}
}

// Load resolves the effective configuration and validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config file %s: %w", l.path, err)
		}
	}

	cfg = overlayEnv(cfg)
	cfg.Version = l.version

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// overlayEnv applies environment variables on top of the current values.
// Every file/default value doubles as the fallback for its env key.
func overlayEnv(cfg AppConfig) AppConfig {
	cfg.ListenAddr = ParseString("FBD_LISTEN", cfg.ListenAddr)
	cfg.DataDir = ParseString("FBD_DATA", cfg.DataDir)
	cfg.DBPath = ParseString("FBD_DB_PATH", cfg.DBPath)
	cfg.RedisAddr = ParseString("FBD_REDIS_ADDR", cfg.RedisAddr)
	cfg.APIToken = ParseString("FBD_API_TOKEN", cfg.APIToken)

	cfg.LLM.Provider = ParseString("FBD_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = ParseString("FBD_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = ParseString("FBD_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = ParseString("FBD_LLM_API_KEY", cfg.LLM.APIKey)
	// Compatibility with the deployment that predates FBD_LLM_API_KEY.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = ParseString("DEEPSEEK_API_KEY", "")
	}
	cfg.LLM.Temperature = ParseFloat("FBD_LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = ParseInt("FBD_LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Timeout = ParseDuration("FBD_LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.MaxRetries = ParseInt("FBD_LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.RatePerSec = ParseFloat("FBD_LLM_RATE_PER_SEC", cfg.LLM.RatePerSec)

	cfg.Checkstyle.JavaBin = ParseString("FBD_JAVA_BIN", cfg.Checkstyle.JavaBin)
	cfg.Checkstyle.JarName = ParseString("FBD_CHECKSTYLE_JAR", cfg.Checkstyle.JarName)
	cfg.Checkstyle.ConfigName = ParseString("FBD_CHECKSTYLE_CONFIG", cfg.Checkstyle.ConfigName)
	cfg.Checkstyle.Timeout = ParseDuration("FBD_CHECKSTYLE_TIMEOUT", cfg.Checkstyle.Timeout)
	cfg.Checkstyle.MaxFetchMB = ParseInt("FBD_MAX_FETCH_MB", cfg.Checkstyle.MaxFetchMB)

	cfg.AgentMaxSteps = ParseInt("FBD_AGENT_MAX_STEPS", cfg.AgentMaxSteps)
	cfg.CallbackTimeout = ParseDuration("FBD_CALLBACK_TIMEOUT", cfg.CallbackTimeout)
	cfg.SessionTTL = ParseDuration("FBD_SESSION_TTL", cfg.SessionTTL)
	cfg.JobWorkers = ParseInt("FBD_JOB_WORKERS", cfg.JobWorkers)

	cfg.RateLimitEnabled = ParseBool("FBD_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("FBD_RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.TracingEnabled = ParseBool("FBD_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = ParseString("FBD_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingExporter = ParseString("FBD_TRACING_EXPORTER", cfg.TracingExporter)

	cfg.LogLevel = ParseString("FBD_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("FBD_LOG_SERVICE", cfg.LogService)

	return cfg
}

// RequireAPIKey reports whether the configuration can serve LLM-backed
// operations. The daemon starts without a key, but feedback endpoints fail
// readiness until one is configured.
func (c AppConfig) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm api key is not configured")
	}
	return nil
}
