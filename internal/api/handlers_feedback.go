package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/acadly/feedbackd/internal/domain"
	"github.com/acadly/feedbackd/internal/feedback"
	"github.com/acadly/feedbackd/internal/jobs"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/notify"
	"github.com/acadly/feedbackd/internal/session"
	"github.com/acadly/feedbackd/internal/store"
)

// maxMessageChars caps user queries before they reach the LLM.
const maxMessageChars = 2000

type feedbackRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

type feedbackResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// ChatRequest starts an async chat turn that reports back through the
// gateway callback.
type ChatRequest struct {
	SessionID        string            `json:"sessionId"`
	Message          string            `json:"message"`
	UserRole         string            `json:"userRole,omitempty"`
	PreviousMessages []session.Message `json:"previousMessages,omitempty"`
	CallbackURL      string            `json:"callbackUrl"`
}

// ChatMessage is the immediate acknowledgement of a chat request and
// the shape of error replies on chat routes.
type ChatMessage struct {
	SessionID   string      `json:"sessionId"`
	Message     string      `json:"message"`
	MessageType string      `json:"messageType"` // "status" or "error"
	Timestamp   domain.Time `json:"timestamp"`
	IsComplete  bool        `json:"isComplete"`
}

func chatError(w http.ResponseWriter, code int, sessionID, message string) {
	writeJSON(w, code, ChatMessage{
		SessionID:   sessionID,
		Message:     message,
		MessageType: "error",
		Timestamp:   domain.Now(),
		IsComplete:  true,
	})
}

func validateMessage(msg string) (int, string) {
	if msg == "" {
		return http.StatusBadRequest, "message is required"
	}
	if len(msg) > maxMessageChars {
		return http.StatusBadRequest, "message exceeds 2000 characters"
	}
	return 0, ""
}

// handleSyncFeedback serves the blocking feedback routes. The agent
// runs in the request, so slow LLM turns hold the connection open.
func (s *Server) handleSyncFeedback(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if code, msg := validateMessage(req.Message); code != 0 {
			writeError(w, code, msg)
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		answer, err := s.deps.General.Generate(r.Context(), role, sessionID, req.Message, nil)
		if err != nil {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Error().
				Err(err).
				Str(log.FieldRole, role).
				Str(log.FieldSessionID, sessionID).
				Msg("feedback generation failed")
			writeError(w, http.StatusBadGateway, "feedback generation failed")
			return
		}

		writeJSON(w, http.StatusOK, feedbackResponse{Response: answer, SessionID: sessionID})
	}
}

// handleChat serves the async chat routes: validate, acknowledge with
// 202 and hand the work to the jobs manager, which reports through the
// callback URL.
func (s *Server) handleChat(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "sessionId is required")
			return
		}
		if code, msg := validateMessage(req.Message); code != 0 {
			writeError(w, code, msg)
			return
		}
		if err := notify.ValidateCallbackURL(req.CallbackURL); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Seed history supplied by the gateway when we do not know the
		// session yet, so resumed conversations keep their context.
		if len(req.PreviousMessages) > 0 {
			if _, found := s.deps.Sessions.Conversation(r.Context(), req.SessionID); !found {
				conv := session.Conversation{SessionID: req.SessionID, Role: role}
				for _, m := range req.PreviousMessages {
					conv.Append(m.Role, m.Content)
				}
				s.deps.Sessions.Save(r.Context(), conv)
			}
		}

		sessionID, message, callbackURL := req.SessionID, req.Message, req.CallbackURL
		_, err := s.deps.Jobs.Enqueue(r.Context(), jobs.Job{
			Kind:      "chat",
			SessionID: sessionID,
			Run: func(ctx context.Context) error {
				_, err := s.deps.General.GenerateStreaming(ctx, role, sessionID, message, callbackURL)
				return err
			},
		})
		switch {
		case errors.Is(err, jobs.ErrSessionBusy):
			chatError(w, http.StatusConflict, sessionID, "a request for this session is already being processed")
			return
		case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
			chatError(w, http.StatusServiceUnavailable, sessionID, "service is at capacity, try again later")
			return
		case err != nil:
			chatError(w, http.StatusInternalServerError, sessionID, "failed to schedule request")
			return
		}

		writeJSON(w, http.StatusAccepted, ChatMessage{
			SessionID:   sessionID,
			Message:     "Processing your request...",
			MessageType: "status",
			Timestamp:   domain.Now(),
			IsComplete:  false,
		})
	}
}

type teamFeedbackRequest struct {
	SubmissionID int64               `json:"submissionId,omitempty"`
	Submission   *domain.Submission  `json:"submission,omitempty"`
	Evaluations  []domain.Evaluation `json:"evaluations,omitempty"`
}

// handleTeamFeedback generates consolidated team feedback. The caller
// either inlines the submission and its evaluations or passes a
// submissionId for the service to load them itself.
func (s *Server) handleTeamFeedback(w http.ResponseWriter, r *http.Request) {
	var req teamFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		sub   domain.Submission
		evals []domain.Evaluation
	)
	switch {
	case req.Submission != nil:
		sub = *req.Submission
		evals = req.Evaluations
	case req.SubmissionID != 0:
		var err error
		sub, err = s.deps.Store.SubmissionByID(r.Context(), req.SubmissionID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load submission")
			return
		}
		evals, err = s.deps.Store.EvaluationsBySubmission(r.Context(), req.SubmissionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load evaluations")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "submission or submissionId is required")
		return
	}

	if len(evals) == 0 {
		writeError(w, http.StatusBadRequest, "no evaluations available for this submission")
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")

	fb, err := s.deps.Team.MakeFeedback(r.Context(), sub, evals)
	if err != nil {
		logger.Error().
			Err(err).
			Int64(log.FieldSubmissionID, sub.ID).
			Msg("team feedback failed")
		writeError(w, http.StatusBadGateway, "team feedback generation failed")
		return
	}

	if err := s.deps.Store.SaveFeedback(r.Context(), fb); err != nil {
		logger.Warn().
			Err(err).
			Int64(log.FieldSubmissionID, sub.ID).
			Msg("feedback generated but not persisted")
	}

	writeJSON(w, http.StatusOK, fb)
}

// handleFeedbackTypes answers the feedback type catalog.
func (s *Server) handleFeedbackTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types": []map[string]string{
			{
				"type":        feedback.TypeCoordinator,
				"endpoint":    "POST /feedback/coordinator",
				"description": "Program-level analysis across classes and teams, database-backed.",
			},
			{
				"type":        feedback.TypeProfessor,
				"endpoint":    "POST /feedback/professor",
				"description": "Class-level analysis of submissions and evaluations, database-backed.",
			},
			{
				"type":        feedback.TypeCoordinator + "_chat",
				"endpoint":    "POST /feedback/coordinator/chat",
				"description": "Async coordinator analysis streamed to a callback URL.",
			},
			{
				"type":        feedback.TypeProfessor + "_chat",
				"endpoint":    "POST /feedback/professor/chat",
				"description": "Async professor analysis streamed to a callback URL.",
			},
			{
				"type":        feedback.TypeTeam,
				"endpoint":    "POST /feedback/team",
				"description": "Consolidated strengths and improvements for one team submission.",
			},
		},
	})
}
