// Package api exposes the feedback service over HTTP: synchronous
// feedback generation, async chat with gateway callbacks, team
// feedback and the code-analysis pipeline.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acadly/feedbackd/internal/api/middleware"
	"github.com/acadly/feedbackd/internal/checkstyle"
	"github.com/acadly/feedbackd/internal/config"
	"github.com/acadly/feedbackd/internal/feedback"
	"github.com/acadly/feedbackd/internal/health"
	"github.com/acadly/feedbackd/internal/jobs"
	"github.com/acadly/feedbackd/internal/session"
	"github.com/acadly/feedbackd/internal/store"
)

// Deps collects everything the handlers need. Small and explicit so
// tests can swap in fakes per concern.
type Deps struct {
	Config   config.AppConfig
	Store    *store.Store
	Sessions session.Store
	General  *feedback.GeneralService
	Team     *feedback.TeamService
	Jobs     *jobs.Manager

	Downloader *checkstyle.Downloader
	Analyzer   *checkstyle.Runner
	Reporter   *checkstyle.Reporter

	Health *health.Manager
}

// Server is the HTTP API server.
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router builds the chi router with the canonical middleware stack and
// all routes mounted.
func (s *Server) Router() http.Handler {
	cfg := s.deps.Config

	tracingService := ""
	if cfg.TracingEnabled {
		tracingService = "feedbackd-api"
	}

	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:        cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService,
		EnableLogging:         true,
		RateLimitEnabled:      cfg.RateLimitEnabled,
		RateLimitRPM:          cfg.RateLimitRPM,
	})

	// Probes and metrics stay outside auth so orchestrators can reach
	// them.
	r.Get("/", s.handleInfo)
	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/feedback/types", s.handleFeedbackTypes)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/feedback/coordinator", s.handleSyncFeedback(feedback.TypeCoordinator))
		r.Post("/feedback/professor", s.handleSyncFeedback(feedback.TypeProfessor))
		r.Post("/feedback/coordinator/chat", s.handleChat(feedback.TypeCoordinator))
		r.Post("/feedback/professor/chat", s.handleChat(feedback.TypeProfessor))
		r.Post("/feedback/team", s.handleTeamFeedback)

		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyses/{id}", s.handleAnalysisByID)
		r.Get("/reports/{id}", s.handleReport)
	})

	return r
}

// authMiddleware enforces bearer-token auth when a token is
// configured. An empty token disables auth.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	token := s.deps.Config.APIToken
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleInfo answers GET / with the service catalog.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "feedbackd",
		"status":  "active",
		"version": s.deps.Config.Version,
		"endpoints": map[string]string{
			"feedback_types":       "GET /feedback/types",
			"coordinator_feedback": "POST /feedback/coordinator",
			"professor_feedback":   "POST /feedback/professor",
			"coordinator_chat":     "POST /feedback/coordinator/chat",
			"professor_chat":       "POST /feedback/professor/chat",
			"team_feedback":        "POST /feedback/team",
			"analyze":              "POST /analyze",
			"analysis_status":      "GET /analyses/{id}",
			"report":               "GET /reports/{id}",
		},
	})
}
