package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/acadly/feedbackd/internal/metrics"
)

const (
	sessionKeyPrefix  = "fbd:session:"
	inflightKeyPrefix = "fbd:inflight:"

	// An in-flight marker outliving its request would wedge the
	// session, so it always carries its own expiry.
	inflightTTL = 10 * time.Minute
)

// RedisStore is the shared-backend implementation of Store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	stats  struct {
		hits      atomic.Int64
		misses    atomic.Int64
		sets      atomic.Int64
		evictions atomic.Int64
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, ttl time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis session store")

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (s *RedisStore) Conversation(ctx context.Context, sessionID string) (Conversation, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		s.stats.misses.Add(1)
		metrics.IncSessionCacheOp("redis", "miss")
		return Conversation{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("redis get failed")
		s.stats.misses.Add(1)
		metrics.IncSessionCacheOp("redis", "error")
		return Conversation{}, false
	}

	var conv Conversation
	if err := json.Unmarshal(val, &conv); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session unmarshal failed")
		s.stats.misses.Add(1)
		metrics.IncSessionCacheOp("redis", "error")
		return Conversation{}, false
	}

	s.stats.hits.Add(1)
	metrics.IncSessionCacheOp("redis", "hit")
	return conv, true
}

func (s *RedisStore) Save(ctx context.Context, conv Conversation) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(conv)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", conv.SessionID).Msg("session marshal failed")
		return
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+conv.SessionID, data, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("session_id", conv.SessionID).Msg("redis set failed")
		metrics.IncSessionCacheOp("redis", "error")
		return
	}

	s.stats.sets.Add(1)
	metrics.IncSessionCacheOp("redis", "set")
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("redis delete failed")
	}
}

func (s *RedisStore) Acquire(ctx context.Context, sessionID string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	ok, err := s.client.SetNX(ctx, inflightKeyPrefix+sessionID, 1, inflightTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("redis setnx failed")
		// Failing open would let duplicate requests race; fail closed.
		return false
	}
	return ok
}

func (s *RedisStore) Release(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, inflightKeyPrefix+sessionID).Err(); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("redis release failed")
	}
}

func (s *RedisStore) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("redis dbsize failed")
		size = 0
	}

	return Stats{
		Hits:        s.stats.hits.Load(),
		Misses:      s.stats.misses.Load(),
		Sets:        s.stats.sets.Load(),
		Evictions:   s.stats.evictions.Load(),
		CurrentSize: int(size),
	}
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
