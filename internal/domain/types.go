// Package domain defines the academic entities exchanged with the gateway
// and persisted by the store.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Submission is a team's delivery of an assignment.
type Submission struct {
	ID              int64  `json:"id"`
	AssignmentID    int64  `json:"assignmentId"`
	AssignmentTitle string `json:"assignmentTitle"`
	TeamID          int64  `json:"teamId"`
	TeamName        string `json:"teamName"`
	SubmittedAt     Time   `json:"submittedAt"`
	FileURL         string `json:"fileUrl"`
	ClassID         int64  `json:"classId,omitempty"`
	ClassName       string `json:"className,omitempty"`
}

// IsComplete reports whether the submission carries every field the feedback
// pipeline depends on.
func (s Submission) IsComplete() bool {
	return s.ID != 0 &&
		s.AssignmentID != 0 &&
		s.TeamID != 0 &&
		!s.SubmittedAt.IsZero() &&
		s.FileURL != ""
}

// Evaluation is a single rubric score given to a submission by an evaluator.
type Evaluation struct {
	ID              int64    `json:"id"`
	SubmissionID    int64    `json:"submissionId"`
	EvaluatorID     int64    `json:"evaluatorId"`
	EvaluatorName   string   `json:"evaluatorName"`
	EvaluationType  string   `json:"evaluationType"` // e.g. "automated", "manual", "peer"
	Score           *float64 `json:"score"`          // 0..100, nil when unscored
	CriteriaJSON    string   `json:"criteriaJson"`
	CreatedAt       Time     `json:"createdAt"`
	EvaluationDate  Time     `json:"evaluationDate"`
	TeamName        string   `json:"teamName,omitempty"`
	AssignmentTitle string   `json:"assignmentTitle,omitempty"`
	ClassID         int64    `json:"classId,omitempty"`
	ClassName       string   `json:"className,omitempty"`
}

// IsComplete reports whether the evaluation has every required field.
func (e Evaluation) IsComplete() bool {
	return e.SubmissionID != 0 &&
		e.EvaluatorID != 0 &&
		e.EvaluationType != "" &&
		e.Score != nil &&
		!e.EvaluationDate.IsZero()
}

// Criteria parses CriteriaJSON. Malformed or empty criteria yield nil.
func (e Evaluation) Criteria() map[string]any {
	if strings.TrimSpace(e.CriteriaJSON) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(e.CriteriaJSON), &out); err != nil {
		return nil
	}
	return out
}

// ScorePercent returns the score on the 0..100 scale.
func (e Evaluation) ScorePercent() (float64, bool) {
	if e.Score == nil {
		return 0, false
	}
	return *e.Score, true
}

// ScoreOutOfTen returns the score on the 0..10 scale.
func (e Evaluation) ScoreOutOfTen() (float64, bool) {
	if e.Score == nil {
		return 0, false
	}
	return *e.Score / 10.0, true
}

// Summary renders a one-line human-readable description of the evaluation.
func (e Evaluation) Summary() string {
	score := "no score"
	if e.Score != nil {
		score = fmt.Sprintf("%.1f points", *e.Score)
	}
	evaluator := e.EvaluatorName
	if evaluator == "" {
		evaluator = "unknown evaluator"
	}
	return fmt.Sprintf("evaluation %d: %s by %s (%s)", e.ID, score, evaluator, e.EvaluationType)
}

// Feedback is the generated feedback attached to a submission.
type Feedback struct {
	ID              int64  `json:"id,omitempty"`
	SubmissionID    int64  `json:"submissionId"`
	FeedbackType    string `json:"feedbackType"`
	Content         string `json:"content"`
	FeedbackDate    Time   `json:"feedbackDate"`
	Strengths       string `json:"strengths,omitempty"`
	Improvements    string `json:"improvements,omitempty"`
	TeamName        string `json:"teamName,omitempty"`
	AssignmentTitle string `json:"assignmentTitle,omitempty"`
}

// ErrNoContent is returned when a feedback record carries neither content nor
// component sections.
var ErrNoContent = errors.New("feedback has no content")

// IsComplete reports whether the feedback record is usable.
func (f Feedback) IsComplete() bool {
	hasBody := f.Content != "" || f.Strengths != "" || f.Improvements != ""
	return f.SubmissionID != 0 && hasBody && !f.FeedbackDate.IsZero()
}

// ConsolidatedContent merges the content and component sections into a single
// body for display and persistence.
func (f Feedback) ConsolidatedContent() string {
	if f.Content != "" && f.Strengths == "" && f.Improvements == "" {
		return f.Content
	}
	var parts []string
	if f.Content != "" {
		parts = append(parts, f.Content)
	}
	if f.Strengths != "" {
		parts = append(parts, "Strengths: "+f.Strengths)
	}
	if f.Improvements != "" {
		parts = append(parts, "Improvements: "+f.Improvements)
	}
	return strings.Join(parts, "\n\n")
}
