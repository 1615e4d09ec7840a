package llm

import (
	"fmt"
	"time"
)

// Chat roles used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: api error %d: %s", e.Status, e.Body)
}

// RateLimitError signals a 429 and how long the server asked us to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limited, retry after %s", e.RetryAfter)
}
