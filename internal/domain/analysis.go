package domain

// Analysis states.
const (
	AnalysisPending = "pending"
	AnalysisRunning = "running"
	AnalysisDone    = "done"
	AnalysisFailed  = "failed"
)

// Analysis is one static-analysis run over a submitted repository.
type Analysis struct {
	ID          string `json:"id"`
	RepoURL     string `json:"repoUrl"`
	Status      string `json:"status"`
	ReportPath  string `json:"reportPath,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCount  int    `json:"errorCount"`
	Warnings    int    `json:"warningCount"`
	Infos       int    `json:"infoCount"`
	CreatedAt   Time   `json:"createdAt"`
	CompletedAt Time   `json:"completedAt,omitempty"`
}

// Finished reports whether the run reached a terminal state.
func (a Analysis) Finished() bool {
	return a.Status == AnalysisDone || a.Status == AnalysisFailed
}
