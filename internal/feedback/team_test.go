package feedback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadly/feedbackd/internal/domain"
	"github.com/acadly/feedbackd/internal/llm"
)

// promptRouter answers based on which prompt it receives, so the
// concurrent strengths/improvements calls stay deterministic.
type promptRouter struct {
	mu      sync.Mutex
	prompts []string
	fail    bool
}

func (r *promptRouter) Complete(_ context.Context, msgs []llm.Message, _ ...llm.CompleteOption) (string, error) {
	prompt := msgs[len(msgs)-1].Content

	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()

	if r.fail {
		return "", errors.New("llm unavailable")
	}
	// The combined prompt embeds the words STRENGTHS and IMPROVEMENT
	// AREAS, so it has to be matched first by its own instruction.
	switch {
	case strings.Contains(prompt, "Combine the strengths"):
		return "- [Strengths]: modular design\n- [Improvement areas]: testing", nil
	case strings.Contains(prompt, "STRENGTHS"):
		return "  - strong modular design\n", nil
	case strings.Contains(prompt, "AREAS FOR IMPROVEMENT"):
		return "- add more unit tests", nil
	default:
		return "", errors.New("unexpected prompt")
	}
}

func score(v float64) *float64 { return &v }

func testSubmission() domain.Submission {
	return domain.Submission{
		ID:              40,
		AssignmentID:    30,
		AssignmentTitle: "Refactoring Kata",
		TeamID:          10,
		TeamName:        "Team Rocket",
		SubmittedAt:     domain.Now(),
		FileURL:         "https://github.com/acme/kata",
	}
}

func testEvaluations() []domain.Evaluation {
	return []domain.Evaluation{
		{ID: 1, SubmissionID: 40, EvaluatorID: 2, EvaluationType: "peer", Score: score(85), CriteriaJSON: `{"design":90}`},
		{ID: 2, SubmissionID: 40, EvaluatorID: 3, EvaluationType: "professor", Score: score(72), CriteriaJSON: `{"design":70}`},
	}
}

func TestTeamService_MakeFeedback(t *testing.T) {
	router := &promptRouter{}
	svc := NewTeamService(router)

	fb, err := svc.MakeFeedback(context.Background(), testSubmission(), testEvaluations())
	require.NoError(t, err)

	assert.Equal(t, TypeTeam, fb.FeedbackType)
	assert.Equal(t, int64(40), fb.SubmissionID)
	assert.Equal(t, "- strong modular design", fb.Strengths)
	assert.Equal(t, "- add more unit tests", fb.Improvements)
	assert.Contains(t, fb.Content, "[Strengths]")
	assert.True(t, fb.IsComplete())

	// Three completions: strengths, improvements, combined.
	require.Len(t, router.prompts, 3)
	for _, p := range router.prompts {
		assert.Contains(t, p, `team "Team Rocket"`)
		assert.Contains(t, p, "peer, professor")
		assert.Contains(t, p, `{"design":90}`)
	}
}

func TestTeamService_NoEvaluations(t *testing.T) {
	svc := NewTeamService(&promptRouter{})

	_, err := svc.MakeFeedback(context.Background(), testSubmission(), nil)
	assert.ErrorContains(t, err, "no evaluations")
}

func TestTeamService_LLMFailure(t *testing.T) {
	svc := NewTeamService(&promptRouter{fail: true})

	_, err := svc.MakeFeedback(context.Background(), testSubmission(), testEvaluations())
	assert.ErrorContains(t, err, "llm unavailable")
}

func TestCriteriaJSONTruncation(t *testing.T) {
	big := strings.Repeat("x", maxCriteriaChars)
	evals := []domain.Evaluation{
		{CriteriaJSON: big},
		{CriteriaJSON: "tail"},
	}
	out := criteriaJSON(evals)
	assert.Len(t, out, maxCriteriaChars+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"team", "coordinator", "professor"}, Types())
}
