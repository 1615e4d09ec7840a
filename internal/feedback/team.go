// Package feedback generates feedback for teams, coordinators and
// professors from stored evaluations.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/acadly/feedbackd/internal/domain"
	"github.com/acadly/feedbackd/internal/llm"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/prompts"
)

// Feedback types exposed by the service.
const (
	TypeTeam        = "team"
	TypeCoordinator = "coordinator"
	TypeProfessor   = "professor"
)

// Types lists the supported feedback types.
func Types() []string {
	return []string{TypeTeam, TypeCoordinator, TypeProfessor}
}

// Concatenated rubric data is capped before prompting so a large
// evaluation set cannot blow the request.
const maxCriteriaChars = 5000

// Team feedback wants slightly more creative phrasing than the
// analysis agent.
const teamTemperature = 0.3

// TeamService builds consolidated team feedback from evaluations.
type TeamService struct {
	llm llm.Completer
}

// NewTeamService wires the completion backend.
func NewTeamService(c llm.Completer) *TeamService {
	return &TeamService{llm: c}
}

// MakeFeedback generates strengths, improvement areas and the combined
// feedback body for a submission. The two component sections are
// independent completions and run concurrently; the combined pass
// needs both and runs after.
func (s *TeamService) MakeFeedback(ctx context.Context, sub domain.Submission, evals []domain.Evaluation) (domain.Feedback, error) {
	logger := log.WithComponentFromContext(ctx, "feedback.team")
	logger.Info().
		Int64(log.FieldSubmissionID, sub.ID).
		Str("team", sub.TeamName).
		Int("evaluations", len(evals)).
		Msg("generating team feedback")

	if len(evals) == 0 {
		metrics.IncFeedback(TypeTeam, "failure")
		return domain.Feedback{}, fmt.Errorf("submission %d has no evaluations", sub.ID)
	}

	data := prompts.TeamData{
		TeamName:        sub.TeamName,
		AssignmentTitle: sub.AssignmentTitle,
		Count:           len(evals),
		CriteriaJSON:    criteriaJSON(evals),
		EvaluationTypes: evaluationTypes(evals),
	}

	var strengths, improvements string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.llm.Complete(gctx,
			[]llm.Message{{Role: llm.RoleUser, Content: prompts.TeamStrengths(data)}},
			llm.WithTemperature(teamTemperature))
		if err != nil {
			return fmt.Errorf("strengths: %w", err)
		}
		strengths = strings.TrimSpace(out)
		return nil
	})
	g.Go(func() error {
		out, err := s.llm.Complete(gctx,
			[]llm.Message{{Role: llm.RoleUser, Content: prompts.TeamImprovements(data)}},
			llm.WithTemperature(teamTemperature))
		if err != nil {
			return fmt.Errorf("improvements: %w", err)
		}
		improvements = strings.TrimSpace(out)
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.IncFeedback(TypeTeam, "failure")
		return domain.Feedback{}, err
	}

	data.Strengths = strengths
	data.Improvements = improvements
	content, err := s.llm.Complete(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: prompts.TeamCombined(data)}},
		llm.WithTemperature(teamTemperature))
	if err != nil {
		metrics.IncFeedback(TypeTeam, "failure")
		return domain.Feedback{}, fmt.Errorf("combined feedback: %w", err)
	}

	fb := domain.Feedback{
		SubmissionID:    sub.ID,
		FeedbackType:    TypeTeam,
		Content:         strings.TrimSpace(content),
		FeedbackDate:    domain.Now(),
		Strengths:       strengths,
		Improvements:    improvements,
		TeamName:        sub.TeamName,
		AssignmentTitle: sub.AssignmentTitle,
	}

	metrics.IncFeedback(TypeTeam, "success")
	logger.Info().Int64(log.FieldSubmissionID, sub.ID).Int("content_chars", len(fb.Content)).Msg("team feedback generated")
	return fb, nil
}

func criteriaJSON(evals []domain.Evaluation) string {
	parts := make([]string, 0, len(evals))
	for _, ev := range evals {
		if strings.TrimSpace(ev.CriteriaJSON) != "" {
			parts = append(parts, ev.CriteriaJSON)
		}
	}
	joined := strings.Join(parts, " ")
	if len(joined) > maxCriteriaChars {
		joined = joined[:maxCriteriaChars] + "..."
	}
	return joined
}

func evaluationTypes(evals []domain.Evaluation) string {
	types := make([]string, 0, len(evals))
	for _, ev := range evals {
		if ev.EvaluationType != "" {
			types = append(types, ev.EvaluationType)
		}
	}
	return strings.Join(types, ", ")
}
