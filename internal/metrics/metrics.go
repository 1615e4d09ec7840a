// Package metrics defines the Prometheus business metrics for feedbackd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedbackGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_feedback_generated_total",
		Help: "Feedback generation attempts by type and outcome",
	}, []string{"type", "outcome"}) // outcome=success|failure

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_llm_requests_total",
		Help: "LLM chat-completion requests by outcome",
	}, []string{"outcome"}) // outcome=success|rate_limited|error

	llmRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedbackd_llm_request_seconds",
		Help:    "LLM chat-completion request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	agentSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedbackd_agent_steps_total",
		Help: "Total agent loop iterations executed",
	})

	agentToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_agent_tool_calls_total",
		Help: "Agent tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	callbackDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_callback_deliveries_total",
		Help: "Gateway callback deliveries by outcome",
	}, []string{"outcome"})

	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_analysis_runs_total",
		Help: "Checkstyle analysis runs by outcome",
	}, []string{"outcome"})

	analysisViolations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedbackd_analysis_violations",
		Help: "Violations found by the most recent analysis, by severity",
	}, []string{"severity"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedbackd_jobs_inflight",
		Help: "Background jobs currently executing",
	})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_jobs_processed_total",
		Help: "Background jobs finished by outcome",
	}, []string{"outcome"}) // outcome=done|error

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedbackd_circuit_breaker_state",
		Help: "Circuit breaker state per component (0=closed, 1=half-open, 2=open)",
	}, []string{"component"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_circuit_breaker_trips_total",
		Help: "Circuit breaker open transitions by component and reason",
	}, []string{"component", "reason"})

	sessionCacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbackd_session_cache_ops_total",
		Help: "Session cache operations by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss|set|error
)

// IncFeedback records a feedback generation attempt.
func IncFeedback(feedbackType, outcome string) {
	feedbackGenerated.WithLabelValues(feedbackType, outcome).Inc()
}

// IncLLMRequest records an LLM request outcome.
func IncLLMRequest(outcome string) {
	llmRequests.WithLabelValues(outcome).Inc()
}

// ObserveLLMDuration records the latency of a completed LLM request.
func ObserveLLMDuration(seconds float64) {
	llmRequestDuration.Observe(seconds)
}

// IncAgentStep records one agent loop iteration.
func IncAgentStep() {
	agentSteps.Inc()
}

// IncToolCall records one agent tool invocation.
func IncToolCall(tool, outcome string) {
	agentToolCalls.WithLabelValues(tool, outcome).Inc()
}

// IncCallbackDelivery records a gateway callback delivery attempt.
func IncCallbackDelivery(outcome string) {
	callbackDeliveries.WithLabelValues(outcome).Inc()
}

// IncAnalysisRun records an analysis pipeline run.
func IncAnalysisRun(outcome string) {
	analysisRuns.WithLabelValues(outcome).Inc()
}

// SetAnalysisViolations records violation counts from the latest analysis.
func SetAnalysisViolations(severity string, count int) {
	analysisViolations.WithLabelValues(severity).Set(float64(count))
}

// JobStarted marks a background job as in flight.
func JobStarted() {
	jobsInFlight.Inc()
}

// JobFinished marks a background job as completed with the given outcome.
func JobFinished(outcome string) {
	jobsInFlight.Dec()
	jobsProcessed.WithLabelValues(outcome).Inc()
}

// SetCircuitBreakerState publishes the state of a named circuit breaker.
func SetCircuitBreakerState(component, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	circuitBreakerState.WithLabelValues(component).Set(v)
}

// RecordCircuitBreakerTrip counts a transition into the open state.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}

// IncSessionCacheOp records a session cache operation.
func IncSessionCacheOp(backend, result string) {
	sessionCacheOps.WithLabelValues(backend, result).Inc()
}
