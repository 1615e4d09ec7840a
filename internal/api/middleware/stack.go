// Package middleware provides the canonical HTTP ingress middleware
// stack for the API server.
package middleware

import (
	"github.com/go-chi/chi/v5"

	fblog "github.com/acadly/feedbackd/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	AllowedOrigins []string

	EnableSecurityHeaders bool
	CSP                   string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	RateLimitEnabled bool
	RateLimitRPM     int
}

// NewRouter constructs a chi router with the full stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r. Order matters: the
// recoverer is outermost so every later layer is covered, and request
// IDs are assigned before anything logs.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(fblog.Middleware())
	}
	if cfg.RateLimitEnabled {
		r.Use(RateLimit(cfg.RateLimitRPM))
	}
}
