package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	FeedbackTypeKey    = "feedback.type"
	FeedbackSessionKey = "feedback.session_id"

	LLMProviderKey = "llm.provider"
	LLMModelKey    = "llm.model"

	AgentStepKey = "agent.step"
	AgentToolKey = "agent.tool"

	AnalysisIDKey         = "analysis.id"
	AnalysisViolationsKey = "analysis.violations"

	JobTypeKey     = "job.type"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// FeedbackAttributes creates feedback span attributes; empty values
// are skipped.
func FeedbackAttributes(feedbackType, sessionID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if feedbackType != "" {
		attrs = append(attrs, attribute.String(FeedbackTypeKey, feedbackType))
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(FeedbackSessionKey, sessionID))
	}
	return attrs
}

// JobAttributes creates job span attributes.
func JobAttributes(jobType, status string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ErrorAttributes marks a span as failed with a classification.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
