package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acadly/feedbackd/internal/agent"
	"github.com/acadly/feedbackd/internal/agent/sqltool"
	"github.com/acadly/feedbackd/internal/api"
	"github.com/acadly/feedbackd/internal/checkstyle"
	"github.com/acadly/feedbackd/internal/config"
	"github.com/acadly/feedbackd/internal/feedback"
	"github.com/acadly/feedbackd/internal/health"
	"github.com/acadly/feedbackd/internal/jobs"
	"github.com/acadly/feedbackd/internal/llm"
	fblog "github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/notify"
	"github.com/acadly/feedbackd/internal/session"
	"github.com/acadly/feedbackd/internal/store"
	"github.com/acadly/feedbackd/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	fblog.Configure(fblog.Config{
		Level:   "info",
		Service: "feedbackd",
		Version: version,
	})
	logger := fblog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*configPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	fblog.Configure(fblog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Msg("startup checks failed, verify configuration and permissions")
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Msg("starting feedbackd")

	if cfg.APIToken == "" {
		logger.Warn().Msg("API token not configured, authentication is disabled")
	}

	// Tracing.
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "feedbackd",
		ServiceVersion: version,
		Environment:    "production",
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Storage.
	db, err := store.Open(cfg.DBPath, store.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Str(fblog.FieldPath, cfg.DBPath).Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	st := store.New(db)
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	// Session backend: Redis when configured and reachable, in-process
	// otherwise.
	sessions := session.NewStore(session.RedisConfig{Addr: cfg.RedisAddr}, cfg.SessionTTL, fblog.WithComponent("session"))
	if redisStore, ok := sessions.(*session.RedisStore); ok {
		defer func() { _ = redisStore.Close() }()
	}

	// LLM client and the database-tool agent.
	completer := llm.NewClient(cfg.LLM)

	registry := agent.NewRegistry()
	sqltool.RegisterAll(registry, st)
	runner := agent.NewRunner(completer, registry, cfg.AgentMaxSteps)

	notifier := notify.New(cfg.CallbackTimeout)
	general := feedback.NewGeneralService(runner, sessions, notifier)
	team := feedback.NewTeamService(completer)

	// Background jobs.
	manager := jobs.NewManager(jobs.Config{Workers: cfg.JobWorkers}, sessions)
	manager.Start(ctx)
	defer manager.Close()

	// Checkstyle pipeline.
	downloader := checkstyle.NewDownloader(cfg.DownloadsDir(), cfg.Checkstyle.MaxFetchMB)
	analyzer := checkstyle.NewRunner(cfg.Checkstyle.JavaBin, cfg.JarPath(), cfg.CheckstyleConfigPath(), cfg.Checkstyle.Timeout)
	reporter, err := checkstyle.NewReporter(cfg.ReportsDir(), cfg.TemplatesDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load report template")
	}
	if err := reporter.Watch(ctx); err != nil {
		logger.Warn().Err(err).Msg("template hot-reload unavailable")
	} else {
		defer func() { _ = reporter.Close() }()
	}

	// Health checks.
	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewDatabaseChecker(db))
	healthMgr.RegisterChecker(health.NewSessionChecker(sessions))
	healthMgr.RegisterChecker(health.NewDataDirChecker(cfg.DataDir))

	server := api.NewServer(api.Deps{
		Config:     cfg,
		Store:      st,
		Sessions:   sessions,
		General:    general,
		Team:       team,
		Jobs:       manager,
		Downloader: downloader,
		Analyzer:   analyzer,
		Reporter:   reporter,
		Health:     healthMgr,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	logger.Info().Msg("feedbackd stopped")
}
