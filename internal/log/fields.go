package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID    = "session_id"
	FieldRequestID    = "request_id"
	FieldJobID        = "job_id"
	FieldSubmissionID = "submission_id"
	FieldAnalysisID   = "analysis_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRole      = "role"
	FieldTool      = "tool"
	FieldStep      = "step"

	// Path / URL fields
	FieldPath        = "path"
	FieldBaseURL     = "base_url"
	FieldCallbackURL = "callback_url"
	FieldReportPath  = "report_path"

	// LLM fields
	FieldModel    = "model"
	FieldProvider = "provider"
)
