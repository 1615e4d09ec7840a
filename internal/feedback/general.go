package feedback

import (
	"context"
	"fmt"

	"github.com/acadly/feedbackd/internal/agent"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/notify"
	"github.com/acadly/feedbackd/internal/prompts"
	"github.com/acadly/feedbackd/internal/session"
)

// GeneralService answers coordinator and professor queries by letting
// the agent mine the academic database. Conversations are kept in the
// session store so follow-up questions carry context.
type GeneralService struct {
	runner   *agent.Runner
	sessions session.Store
	notifier *notify.Notifier
}

// NewGeneralService wires the agent, session store and gateway notifier.
func NewGeneralService(runner *agent.Runner, sessions session.Store, notifier *notify.Notifier) *GeneralService {
	return &GeneralService{runner: runner, sessions: sessions, notifier: notifier}
}

// Generate answers one query for the given audience role. progress may
// be nil for synchronous callers.
func (s *GeneralService) Generate(ctx context.Context, role, sessionID, query string, progress agent.Progress) (string, error) {
	logger := log.WithComponentFromContext(ctx, "feedback.general")

	conv, found := s.sessions.Conversation(ctx, sessionID)
	if !found {
		conv = session.Conversation{SessionID: sessionID, Role: role}
	}

	var prompt string
	switch role {
	case TypeCoordinator:
		prompt = prompts.Coordinator(query, conv.History())
	case TypeProfessor:
		prompt = prompts.Professor(query, conv.History())
	default:
		return "", fmt.Errorf("unsupported feedback role %q", role)
	}

	logger.Info().
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldRole, role).
		Int("history_turns", len(conv.Messages)).
		Msg("generating analysis")

	answer, err := s.runner.Run(ctx, prompt, nil, progress)
	if err != nil {
		metrics.IncFeedback(role, "failure")
		return "", err
	}

	conv.Append("user", query)
	conv.Append("assistant", answer)
	s.sessions.Save(ctx, conv)

	metrics.IncFeedback(role, "success")
	return answer, nil
}

// GenerateStreaming runs Generate while forwarding progress to the
// gateway callback, then delivers the final answer or the error.
func (s *GeneralService) GenerateStreaming(ctx context.Context, role, sessionID, query, callbackURL string) (string, error) {
	s.notifier.SendProgress(ctx, callbackURL, sessionID, "Starting analysis...")

	answer, err := s.Generate(ctx, role, sessionID, query, func(msg string) {
		s.notifier.SendProgress(ctx, callbackURL, sessionID, msg)
	})
	if err != nil {
		s.notifier.SendError(ctx, callbackURL, sessionID, err.Error())
		return "", err
	}

	s.notifier.SendCompletion(ctx, callbackURL, sessionID, answer)
	return answer, nil
}
