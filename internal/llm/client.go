// Package llm implements the chat-completions client used for feedback
// generation. It speaks the OpenAI-compatible wire format exposed by
// DeepSeek and guards the upstream with a rate limiter and a circuit
// breaker.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/acadly/feedbackd/internal/config"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/resilience"
)

// Completer is the interface consumed by the feedback services and the
// agent loop. The concrete Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, opts ...CompleteOption) (string, error)
}

// Client talks to a chat-completions endpoint.
type Client struct {
	base        string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	maxRetries  int
	http        *http.Client
	limiter     *rate.Limiter
	breaker     *resilience.CircuitBreaker
}

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	return &Client{
		base:        strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:     rate.NewLimiter(rate.Limit(perSec), 1),
		breaker:     resilience.NewCircuitBreaker("llm", 5, 30*time.Second),
	}
}

// CompleteOption overrides per-request generation parameters.
type CompleteOption func(*chatRequest)

// WithTemperature overrides the configured sampling temperature.
func WithTemperature(t float64) CompleteOption {
	return func(r *chatRequest) { r.Temperature = t }
}

// WithMaxTokens overrides the configured completion token budget.
func WithMaxTokens(n int) CompleteOption {
	return func(r *chatRequest) { r.MaxTokens = n }
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the conversation and returns the assistant reply.
// Rate-limit responses are retried honoring Retry-After; transport and
// server errors are retried with exponential backoff and count against
// the circuit breaker.
func (c *Client) Complete(ctx context.Context, msgs []Message, opts ...CompleteOption) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, opt := range opts {
		opt(&req)
	}

	logger := log.WithComponentFromContext(ctx, "llm")

	var lastErr error
	wait := time.Duration(0)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			if wait > backoff {
				backoff = wait
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		wait = 0

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		var content string
		var rateErr *RateLimitError
		start := time.Now()
		execErr := c.breaker.Execute(func() error {
			out, err := c.doOnce(ctx, req)
			if err != nil {
				var rl *RateLimitError
				if errors.As(err, &rl) {
					// 429 is upstream throttling, not an upstream outage.
					rateErr = rl
					return nil
				}
				return err
			}
			content = out
			return nil
		})
		metrics.ObserveLLMDuration(time.Since(start).Seconds())

		switch {
		case execErr == nil && rateErr == nil:
			metrics.IncLLMRequest("success")
			return content, nil
		case rateErr != nil:
			metrics.IncLLMRequest("rate_limited")
			logger.Warn().Dur("retry_after", rateErr.RetryAfter).Int("attempt", attempt).Msg("rate limited by upstream")
			wait = rateErr.RetryAfter
			lastErr = rateErr
		default:
			metrics.IncLLMRequest("error")
			if errors.Is(execErr, resilience.ErrCircuitOpen) || ctx.Err() != nil {
				return "", execErr
			}
			var apiErr *APIError
			if errors.As(execErr, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
				return "", execErr
			}
			logger.Warn().Err(execErr).Int("attempt", attempt).Msg("completion attempt failed")
			lastErr = execErr
		}
	}

	return "", fmt.Errorf("chat completion failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, res.Body) //nolint:errcheck
		return "", &RateLimitError{RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
	}
	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out chatResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: response contained no choices")
	}
	content := out.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("llm: response contained an empty completion")
	}
	return content, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 2 * time.Second
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return 2 * time.Second
}
