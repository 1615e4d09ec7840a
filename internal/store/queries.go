package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/acadly/feedbackd/internal/domain"
)

const timeLayout = time.RFC3339Nano

func encodeTime(t domain.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s sql.NullString) domain.Time {
	if !s.Valid || s.String == "" {
		return domain.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return domain.NewTime(t)
		}
	}
	return domain.Time{}
}

// SubmissionByID loads a submission with its assignment, team and class
// context resolved.
func (s *Store) SubmissionByID(ctx context.Context, id int64) (domain.Submission, error) {
	const q = `
		SELECT sub.id, sub.assignment_id, a.title, sub.team_id, t.name,
		       sub.submitted_at, sub.file_url, c.id, c.name
		FROM submission sub
		JOIN assignment a ON a.id = sub.assignment_id
		JOIN team t ON t.id = sub.team_id
		JOIN class c ON c.id = a.class_id
		WHERE sub.id = ?`

	var (
		sub         domain.Submission
		submittedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&sub.ID, &sub.AssignmentID, &sub.AssignmentTitle,
		&sub.TeamID, &sub.TeamName, &submittedAt, &sub.FileURL,
		&sub.ClassID, &sub.ClassName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, ErrNotFound
	}
	if err != nil {
		return domain.Submission{}, err
	}
	sub.SubmittedAt = decodeTime(submittedAt)
	return sub, nil
}

// EvaluationsBySubmission returns all evaluations of a submission,
// newest first.
func (s *Store) EvaluationsBySubmission(ctx context.Context, submissionID int64) ([]domain.Evaluation, error) {
	const q = `
		SELECT e.id, e.submission_id, e.evaluator_id, u.name,
		       e.evaluation_type, e.score, e.criteria_json, e.created_at
		FROM evaluation e
		JOIN user u ON u.id = e.evaluator_id
		WHERE e.submission_id = ?
		ORDER BY e.created_at DESC, e.id DESC`

	rows, err := s.db.QueryContext(ctx, q, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evaluation
	for rows.Next() {
		var (
			ev        domain.Evaluation
			score     sql.NullFloat64
			criteria  sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.SubmissionID, &ev.EvaluatorID, &ev.EvaluatorName,
			&ev.EvaluationType, &score, &criteria, &createdAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			ev.Score = &v
		}
		ev.CriteriaJSON = criteria.String
		ev.CreatedAt = decodeTime(createdAt)
		ev.EvaluationDate = ev.CreatedAt
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SaveFeedback upserts the feedback for a submission. Feedback is
// 1-to-1 with submissions, so a regeneration replaces the prior record.
func (s *Store) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	const q = `
		INSERT INTO feedback (submission_id, feedback_type, content, strengths, improvements, feedback_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET
			feedback_type = excluded.feedback_type,
			content = excluded.content,
			strengths = excluded.strengths,
			improvements = excluded.improvements,
			feedback_date = excluded.feedback_date`

	_, err := s.db.ExecContext(ctx, q,
		fb.SubmissionID, fb.FeedbackType, fb.Content,
		fb.Strengths, fb.Improvements, encodeTime(fb.FeedbackDate))
	return err
}

// FeedbackBySubmission loads the stored feedback for a submission.
func (s *Store) FeedbackBySubmission(ctx context.Context, submissionID int64) (domain.Feedback, error) {
	const q = `
		SELECT id, submission_id, feedback_type, content, strengths, improvements, feedback_date
		FROM feedback WHERE submission_id = ?`

	var (
		fb           domain.Feedback
		strengths    sql.NullString
		improvements sql.NullString
		date         sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q, submissionID).Scan(
		&fb.ID, &fb.SubmissionID, &fb.FeedbackType, &fb.Content,
		&strengths, &improvements, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feedback{}, ErrNotFound
	}
	if err != nil {
		return domain.Feedback{}, err
	}
	fb.Strengths = strengths.String
	fb.Improvements = improvements.String
	fb.FeedbackDate = decodeTime(date)
	return fb, nil
}

// RecordAnalysis inserts a new analysis run.
func (s *Store) RecordAnalysis(ctx context.Context, a domain.Analysis) error {
	const q = `
		INSERT INTO analysis_run (id, repo_url, status, report_path, error, error_count, warning_count, info_count, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.RepoURL, a.Status, a.ReportPath, a.Error,
		a.ErrorCount, a.Warnings, a.Infos,
		encodeTime(a.CreatedAt), encodeTime(a.CompletedAt))
	return err
}

// UpdateAnalysis rewrites the mutable fields of an analysis run.
func (s *Store) UpdateAnalysis(ctx context.Context, a domain.Analysis) error {
	const q = `
		UPDATE analysis_run
		SET status = ?, report_path = ?, error = ?, error_count = ?, warning_count = ?, info_count = ?, completed_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		a.Status, a.ReportPath, a.Error,
		a.ErrorCount, a.Warnings, a.Infos,
		encodeTime(a.CompletedAt), a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AnalysisByID loads an analysis run.
func (s *Store) AnalysisByID(ctx context.Context, id string) (domain.Analysis, error) {
	const q = `
		SELECT id, repo_url, status, report_path, error, error_count, warning_count, info_count, created_at, completed_at
		FROM analysis_run WHERE id = ?`

	var (
		a           domain.Analysis
		reportPath  sql.NullString
		errMsg      sql.NullString
		createdAt   sql.NullString
		completedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.RepoURL, &a.Status, &reportPath, &errMsg,
		&a.ErrorCount, &a.Warnings, &a.Infos, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Analysis{}, ErrNotFound
	}
	if err != nil {
		return domain.Analysis{}, err
	}
	a.ReportPath = reportPath.String
	a.Error = errMsg.String
	a.CreatedAt = decodeTime(createdAt)
	a.CompletedAt = decodeTime(completedAt)
	return a, nil
}
