// Package notify delivers streaming progress updates to the gateway
// callback URL supplied with asynchronous chat requests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
)

// Processing states reported to the gateway.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// StreamUpdate is the callback payload.
type StreamUpdate struct {
	SessionID      string `json:"sessionId"`
	PartialMessage string `json:"partialMessage"`
	Status         string `json:"status"`
	IsComplete     bool   `json:"isComplete"`
}

// Notifier posts stream updates to gateway callbacks. Delivery is best
// effort: a failed callback is logged and counted but never aborts the
// work that produced it.
type Notifier struct {
	http *http.Client
}

// New builds a notifier with the given per-delivery timeout.
func New(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ValidateCallbackURL rejects callback targets the notifier will not
// post to.
func ValidateCallbackURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("callbackUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("callbackUrl is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("callbackUrl must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("callbackUrl is missing a host")
	}
	return nil
}

// Send posts one update. It returns false on delivery failure.
func (n *Notifier) Send(ctx context.Context, callbackURL string, update StreamUpdate) bool {
	logger := log.WithComponentFromContext(ctx, "notify")

	body, err := json.Marshal(update)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldSessionID, update.SessionID).Msg("marshal stream update")
		metrics.IncCallbackDelivery("error")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Str(log.FieldCallbackURL, callbackURL).Msg("build callback request")
		metrics.IncCallbackDelivery("error")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldSessionID, update.SessionID).Msg("callback delivery failed")
		metrics.IncCallbackDelivery("error")
		return false
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		logger.Warn().
			Int("status", res.StatusCode).
			Str(log.FieldSessionID, update.SessionID).
			Msg("gateway rejected callback")
		metrics.IncCallbackDelivery("rejected")
		return false
	}

	logger.Debug().
		Str(log.FieldSessionID, update.SessionID).
		Str("status", update.Status).
		Msg("update delivered to gateway")
	metrics.IncCallbackDelivery("success")
	return true
}

// SendProgress posts an intermediate processing update.
func (n *Notifier) SendProgress(ctx context.Context, callbackURL, sessionID, message string) bool {
	return n.Send(ctx, callbackURL, StreamUpdate{
		SessionID:      sessionID,
		PartialMessage: message,
		Status:         StatusProcessing,
	})
}

// SendCompletion posts the final message of a session.
func (n *Notifier) SendCompletion(ctx context.Context, callbackURL, sessionID, finalMessage string) bool {
	return n.Send(ctx, callbackURL, StreamUpdate{
		SessionID:      sessionID,
		PartialMessage: finalMessage,
		Status:         StatusCompleted,
		IsComplete:     true,
	})
}

// SendError reports a failed session to the gateway.
func (n *Notifier) SendError(ctx context.Context, callbackURL, sessionID, errMessage string) bool {
	return n.Send(ctx, callbackURL, StreamUpdate{
		SessionID:      sessionID,
		PartialMessage: errMessage,
		Status:         StatusError,
		IsComplete:     true,
	})
}
