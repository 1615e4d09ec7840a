package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadly/feedbackd/internal/agent"
	"github.com/acadly/feedbackd/internal/checkstyle"
	"github.com/acadly/feedbackd/internal/config"
	"github.com/acadly/feedbackd/internal/domain"
	"github.com/acadly/feedbackd/internal/feedback"
	"github.com/acadly/feedbackd/internal/health"
	"github.com/acadly/feedbackd/internal/jobs"
	"github.com/acadly/feedbackd/internal/llm"
	"github.com/acadly/feedbackd/internal/notify"
	"github.com/acadly/feedbackd/internal/session"
	"github.com/acadly/feedbackd/internal/store"
)

// constLLM answers every completion with the same text. Team feedback
// runs completions concurrently, so it is mutex-guarded.
type constLLM struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (c *constLLM) Complete(_ context.Context, _ []llm.Message, _ ...llm.CompleteOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.reply, nil
}

type testEnv struct {
	server   *Server
	router   http.Handler
	store    *store.Store
	sessions session.Store
	llm      *constLLM
}

func newTestEnv(t *testing.T, cfg config.AppConfig) *testEnv {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	require.NoError(t, st.Migrate(context.Background()))

	sessions := session.NewMemoryStore(time.Hour, time.Hour)
	completer := &constLLM{reply: "All metrics look healthy this term."}
	runner := agent.NewRunner(completer, agent.NewRegistry(), 10)
	notifier := notify.New(5 * time.Second)

	mgr := jobs.NewManager(jobs.Config{Workers: 2, QueueSize: 8, JobTimeout: time.Minute}, sessions)
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	t.Cleanup(func() {
		mgr.Close()
		cancel()
	})

	javaBin := filepath.Join(t.TempDir(), "java")
	script := "#!/bin/sh\ncat <<'EOF'\n" + analysisXML + "\nEOF\nexit 1\n"
	require.NoError(t, os.WriteFile(javaBin, []byte(script), 0o755))

	reporter, err := checkstyle.NewReporter(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	srv := NewServer(Deps{
		Config:     cfg,
		Store:      st,
		Sessions:   sessions,
		General:    feedback.NewGeneralService(runner, sessions, notifier),
		Team:       feedback.NewTeamService(completer),
		Jobs:       mgr,
		Downloader: checkstyle.NewDownloader(t.TempDir(), 1),
		Analyzer:   checkstyle.NewRunner(javaBin, "checkstyle.jar", "rules.xml", time.Minute),
		Reporter:   reporter,
		Health:     health.NewManager("test"),
	})

	return &testEnv{
		server:   srv,
		router:   srv.Router(),
		store:    st,
		sessions: sessions,
		llm:      completer,
	}
}

const analysisXML = `<?xml version="1.0" encoding="UTF-8"?>
<checkstyle version="10.12.4">
<file name="src/Main.java">
<error line="3" severity="error" message="Missing a Javadoc comment." source="com.puppycrawl.tools.checkstyle.checks.javadoc.MissingJavadocMethodCheck"/>
</file>
</checkstyle>`

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServiceInfo(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{Version: "v1.0.0-test"})

	rec := get(env.router, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "feedbackd", info["service"])
	assert.Equal(t, "active", info["status"])
}

func TestFeedbackTypesCatalog(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := get(env.router, "/feedback/types")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Types []map[string]string `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Types, 5)
}

func TestAuthRequiredWhenTokenConfigured(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{APIToken: "secret-token"})

	rec := postJSON(t, env.router, "/feedback/coordinator", feedbackRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	data, _ := json.Marshal(feedbackRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/feedback/coordinator", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/feedback/coordinator", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Probes stay open.
	assert.Equal(t, http.StatusOK, get(env.router, "/healthz").Code)
}

func TestSyncFeedback(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/feedback/professor", feedbackRequest{Message: "How is class 3 doing?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp feedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All metrics look healthy this term.", resp.Response)
	assert.NotEmpty(t, resp.SessionID)

	// Explicit session IDs are echoed back and carry history.
	rec = postJSON(t, env.router, "/feedback/professor", feedbackRequest{Message: "And class 4?", SessionID: "sess-7"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-7", resp.SessionID)

	conv, found := env.sessions.Conversation(context.Background(), "sess-7")
	require.True(t, found)
	assert.Len(t, conv.Messages, 2)
}

func TestSyncFeedbackValidation(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/feedback/coordinator", feedbackRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, env.router, "/feedback/coordinator", feedbackRequest{Message: strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "2000")
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	var (
		mu      sync.Mutex
		updates []notify.StreamUpdate
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u notify.StreamUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	rec := postJSON(t, env.router, "/feedback/coordinator/chat", ChatRequest{
		SessionID:   "chat-1",
		Message:     "Summarize the cohort",
		CallbackURL: gateway.URL,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ack ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "chat-1", ack.SessionID)
	assert.Equal(t, "status", ack.MessageType)
	assert.False(t, ack.IsComplete)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, u := range updates {
			if u.IsComplete && u.Status == notify.StatusCompleted {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/feedback/coordinator/chat", ChatRequest{
		Message:     "hello",
		CallbackURL: "http://localhost:9/cb",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessionId")

	rec = postJSON(t, env.router, "/feedback/coordinator/chat", ChatRequest{
		SessionID:   "chat-2",
		Message:     "hello",
		CallbackURL: "ftp://example.com/cb",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "callbackUrl")
}

func TestChatDuplicateSessionConflicts(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	require.True(t, env.sessions.Acquire(context.Background(), "busy-session"))

	rec := postJSON(t, env.router, "/feedback/professor/chat", ChatRequest{
		SessionID:   "busy-session",
		Message:     "hello",
		CallbackURL: "http://localhost:9/cb",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var msg ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "error", msg.MessageType)
	assert.True(t, msg.IsComplete)
}

func TestChatSeedsPreviousMessages(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	rec := postJSON(t, env.router, "/feedback/coordinator/chat", ChatRequest{
		SessionID: "resumed",
		Message:   "continue",
		PreviousMessages: []session.Message{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
		CallbackURL: gateway.URL,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		conv, found := env.sessions.Conversation(context.Background(), "resumed")
		return found && len(conv.Messages) >= 4
	}, 5*time.Second, 20*time.Millisecond)
}

func teamRequestBody() teamFeedbackRequest {
	score := 85.0
	return teamFeedbackRequest{
		Submission: &domain.Submission{
			ID:              41,
			AssignmentID:    7,
			AssignmentTitle: "REST API project",
			TeamID:          3,
			TeamName:        "Team Rocket",
			SubmittedAt:     domain.Now(),
			FileURL:         "https://example.com/sub.zip",
		},
		Evaluations: []domain.Evaluation{
			{
				ID:             1,
				SubmissionID:   41,
				EvaluatorID:    9,
				EvaluatorName:  "Dr. Lee",
				EvaluationType: "manual",
				Score:          &score,
				CriteriaJSON:   `{"design": 9}`,
				EvaluationDate: domain.Now(),
				CreatedAt:      domain.Now(),
			},
		},
	}
}

func TestTeamFeedback(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/feedback/team", teamRequestBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var fb domain.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fb))
	assert.Equal(t, int64(41), fb.SubmissionID)
	assert.Equal(t, feedback.TypeTeam, fb.FeedbackType)
	assert.NotEmpty(t, fb.Content)

	// The result is persisted for later retrieval.
	stored, err := env.store.FeedbackBySubmission(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, fb.Content, stored.Content)
}

func TestTeamFeedbackValidation(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/feedback/team", teamFeedbackRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := teamRequestBody()
	req.Evaluations = nil
	rec = postJSON(t, env.router, "/feedback/team", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "evaluations")

	rec = postJSON(t, env.router, "/feedback/team", teamFeedbackRequest{SubmissionID: 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzePipeline(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("src/Main.java")
	require.NoError(t, err)
	_, err = w.Write([]byte("public class Main {}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer archive.Close()

	rec := postJSON(t, env.router, "/analyze", analyzeRequest{FileURL: archive.URL})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, domain.AnalysisPending, resp.Status)

	require.Eventually(t, func() bool {
		run, err := env.store.AnalysisByID(context.Background(), resp.ID)
		return err == nil && run.Status == domain.AnalysisDone
	}, 10*time.Second, 50*time.Millisecond)

	rec = get(env.router, "/analyses/"+resp.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 1, run.ErrorCount)
	assert.NotEmpty(t, run.ReportPath)

	rec = get(env.router, "/reports/"+resp.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "MissingJavadocMethodCheck")
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	rec := postJSON(t, env.router, "/analyze", analyzeRequest{FileURL: "not-a-url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, env.router, "/analyze", analyzeRequest{SubmissionID: 12345})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisNotFound(t *testing.T) {
	env := newTestEnv(t, config.AppConfig{})

	assert.Equal(t, http.StatusNotFound, get(env.router, "/analyses/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(env.router, "/reports/nope").Code)
}
