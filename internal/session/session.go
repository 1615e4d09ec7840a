// Package session stores chat conversation state between gateway
// requests. Two backends exist: an in-memory store with a cleanup
// janitor for single-node deployments and a Redis store for
// deployments where several replicas share sessions.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Message is one stored conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the accumulated chat state of one session.
type Conversation struct {
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"` // coordinator or professor
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// maxHistory bounds the stored turns per session so prompts built
// from history stay within the model context window.
const maxHistory = 20

// Append adds a turn and bumps the update timestamp. Older turns
// beyond the history cap are dropped.
func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	if len(c.Messages) > maxHistory {
		c.Messages = c.Messages[len(c.Messages)-maxHistory:]
	}
	c.UpdatedAt = time.Now()
}

// History renders the stored turns as "role: content" lines for
// prompt embedding.
func (c *Conversation) History() []string {
	out := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, m.Role+": "+m.Content)
	}
	return out
}

// Stats holds store performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

// Store is the session state backend.
type Store interface {
	// Conversation loads a session. The second return is false when the
	// session is unknown or expired.
	Conversation(ctx context.Context, sessionID string) (Conversation, bool)
	// Save stores a session with the store's TTL.
	Save(ctx context.Context, conv Conversation)
	// Delete removes a session.
	Delete(ctx context.Context, sessionID string)
	// Acquire marks a session as having an in-flight request. It
	// returns false when another request already holds the session.
	Acquire(ctx context.Context, sessionID string) bool
	// Release clears the in-flight marker.
	Release(ctx context.Context, sessionID string)
	// Stats returns store counters.
	Stats() Stats

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

const memoryCleanupInterval = 5 * time.Minute

// NewStore selects the session backend: Redis when an address is
// configured and answers a ping, the in-memory store otherwise. The
// service stays up without Redis, at the cost of per-node sessions.
func NewStore(cfg RedisConfig, ttl time.Duration, logger zerolog.Logger) Store {
	if cfg.Addr == "" {
		logger.Info().Str("backend", "memory").Msg("session store ready")
		return NewMemoryStore(ttl, memoryCleanupInterval)
	}

	s, err := NewRedisStore(cfg, ttl, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("redis_addr", cfg.Addr).
			Msg("redis unreachable, falling back to in-memory sessions")
		return NewMemoryStore(ttl, memoryCleanupInterval)
	}
	logger.Info().Str("backend", "redis").Msg("session store ready")
	return s
}
