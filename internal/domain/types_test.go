package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestTimeUnmarshalString(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`"2025-08-03T09:35:00Z"`), &ts))
	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, time.August, ts.Month())
}

func TestTimeUnmarshalArray(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`[2025, 8, 3, 9, 35, 0, 574404200]`), &ts))
	assert.Equal(t, time.Date(2025, 8, 3, 9, 35, 0, 574404200, time.UTC), ts.Time)
}

func TestTimeUnmarshalArraySixElements(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`[2025, 8, 3, 9, 35, 0]`), &ts))
	assert.Equal(t, 0, ts.Nanosecond())
}

func TestTimeUnmarshalShortArrayRejected(t *testing.T) {
	var ts Time
	err := json.Unmarshal([]byte(`[2025, 8, 3]`), &ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 elements")
}

func TestTimeUnmarshalNull(t *testing.T) {
	var ts Time
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
}

func TestTimeMarshalRoundTrip(t *testing.T) {
	orig := NewTime(time.Date(2025, 8, 3, 9, 35, 0, 0, time.UTC))
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Time
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, orig.Equal(back.Time))
}

func TestSubmissionDecodesCamelCase(t *testing.T) {
	raw := `{
		"id": 12,
		"assignmentId": 3,
		"assignmentTitle": "Sorting Lab",
		"teamId": 7,
		"teamName": "Team Rocket",
		"submittedAt": [2025, 8, 3, 9, 35, 0, 574404200],
		"fileUrl": "https://example.com/archive.zip",
		"classId": 5,
		"className": "Data Structures"
	}`
	var s Submission
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, int64(12), s.ID)
	assert.Equal(t, "Team Rocket", s.TeamName)
	assert.True(t, s.IsComplete())
}

func TestEvaluationCriteria(t *testing.T) {
	e := Evaluation{CriteriaJSON: `{"clarity": 8, "tests": "missing"}`}
	criteria := e.Criteria()
	require.NotNil(t, criteria)
	assert.Equal(t, float64(8), criteria["clarity"])

	e.CriteriaJSON = `{not json`
	assert.Nil(t, e.Criteria(), "malformed criteria must not panic")

	e.CriteriaJSON = "  "
	assert.Nil(t, e.Criteria())
}

func TestEvaluationScores(t *testing.T) {
	e := Evaluation{Score: f64(85)}
	pct, ok := e.ScorePercent()
	require.True(t, ok)
	assert.Equal(t, 85.0, pct)

	ten, ok := e.ScoreOutOfTen()
	require.True(t, ok)
	assert.Equal(t, 8.5, ten)

	e.Score = nil
	_, ok = e.ScorePercent()
	assert.False(t, ok)
}

func TestEvaluationIsComplete(t *testing.T) {
	e := Evaluation{
		SubmissionID:   1,
		EvaluatorID:    2,
		EvaluationType: "peer",
		Score:          f64(70),
		EvaluationDate: Now(),
	}
	assert.True(t, e.IsComplete())

	e.Score = nil
	assert.False(t, e.IsComplete())
}

func TestFeedbackConsolidatedContent(t *testing.T) {
	f := Feedback{Content: "overall good"}
	assert.Equal(t, "overall good", f.ConsolidatedContent())

	f = Feedback{Strengths: "clean code", Improvements: "more tests"}
	got := f.ConsolidatedContent()
	assert.Contains(t, got, "Strengths: clean code")
	assert.Contains(t, got, "Improvements: more tests")

	f = Feedback{Content: "summary", Strengths: "s"}
	got = f.ConsolidatedContent()
	assert.Contains(t, got, "summary")
	assert.Contains(t, got, "Strengths: s")
}

func TestFeedbackIsComplete(t *testing.T) {
	f := Feedback{SubmissionID: 1, Content: "x", FeedbackDate: Now()}
	assert.True(t, f.IsComplete())

	f.Content = ""
	assert.False(t, f.IsComplete())

	f.Strengths = "something"
	assert.True(t, f.IsComplete())
}
