package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acadly/feedbackd/internal/checkstyle"
	"github.com/acadly/feedbackd/internal/domain"
	"github.com/acadly/feedbackd/internal/jobs"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/store"
)

type analyzeRequest struct {
	SubmissionID int64  `json:"submissionId,omitempty"`
	FileURL      string `json:"fileUrl"`
}

type analyzeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleAnalyze accepts a code-audit request: record the run, queue
// the pipeline and answer 202. Progress is polled via /analyses/{id}.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fileURL := req.FileURL
	if fileURL == "" && req.SubmissionID != 0 {
		sub, err := s.deps.Store.SubmissionByID(r.Context(), req.SubmissionID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load submission")
			return
		}
		fileURL = sub.FileURL
	}

	if u, err := url.Parse(fileURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "fileUrl must be an http(s) URL")
		return
	}

	id := uuid.NewString()
	run := domain.Analysis{
		ID:        id,
		RepoURL:   fileURL,
		Status:    domain.AnalysisPending,
		CreatedAt: domain.Now(),
	}
	if err := s.deps.Store.RecordAnalysis(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record analysis")
		return
	}

	_, err := s.deps.Jobs.Enqueue(r.Context(), jobs.Job{
		Kind: "analysis",
		Run: func(ctx context.Context) error {
			return s.runAnalysis(ctx, id, fileURL)
		},
	})
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "service is at capacity, try again later")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to schedule analysis")
		return
	}

	writeJSON(w, http.StatusAccepted, analyzeResponse{ID: id, Status: domain.AnalysisPending})
}

// runAnalysis executes the audit pipeline inside a job: fetch the
// archive, run the analyzer, render the report and persist the
// outcome.
func (s *Server) runAnalysis(ctx context.Context, id, fileURL string) error {
	logger := log.WithComponentFromContext(ctx, "analysis")

	fail := func(cause error) error {
		metrics.IncAnalysisRun("failure")
		update := domain.Analysis{
			ID:          id,
			Status:      domain.AnalysisFailed,
			Error:       cause.Error(),
			CompletedAt: domain.Now(),
		}
		if err := s.deps.Store.UpdateAnalysis(context.WithoutCancel(ctx), update); err != nil {
			logger.Error().Err(err).Str(log.FieldAnalysisID, id).Msg("failed to record analysis failure")
		}
		return cause
	}

	if err := s.deps.Store.UpdateAnalysis(ctx, domain.Analysis{ID: id, Status: domain.AnalysisRunning}); err != nil {
		return fail(err)
	}

	srcDir, javaFiles, err := s.deps.Downloader.Fetch(ctx, fileURL, id)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := s.deps.Downloader.Cleanup(id); err != nil {
			logger.Warn().Err(err).Str(log.FieldAnalysisID, id).Msg("failed to clean up downloaded sources")
		}
	}()

	result, err := s.deps.Analyzer.Run(ctx, srcDir)
	if err != nil {
		return fail(err)
	}

	reportPath, err := s.deps.Reporter.Write(ctx, checkstyle.ReportData{
		ID:      id,
		RepoURL: fileURL,
		Result:  result,
	})
	if err != nil {
		return fail(err)
	}

	errs, warns, infos := result.Counts()
	metrics.IncAnalysisRun("success")
	metrics.SetAnalysisViolations(checkstyle.SeverityError, errs)
	metrics.SetAnalysisViolations(checkstyle.SeverityWarning, warns)
	metrics.SetAnalysisViolations(checkstyle.SeverityInfo, infos)

	logger.Info().
		Str(log.FieldAnalysisID, id).
		Int("java_files", javaFiles).
		Int("violations", result.TotalViolations()).
		Msg("analysis completed")

	return s.deps.Store.UpdateAnalysis(ctx, domain.Analysis{
		ID:          id,
		Status:      domain.AnalysisDone,
		ReportPath:  reportPath,
		ErrorCount:  errs,
		Warnings:    warns,
		Infos:       infos,
		CompletedAt: domain.Now(),
	})
}

// handleAnalysisByID answers GET /analyses/{id}.
func (s *Server) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.deps.Store.AnalysisByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleReport serves the rendered HTML report of a finished analysis.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.deps.Store.AnalysisByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && run.ReportPath == "") {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	abs, err := s.deps.Reporter.ReportPath(run.ReportPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, abs)
}
