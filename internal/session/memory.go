package session

import (
	"context"
	"sync"
	"time"

	"github.com/acadly/feedbackd/internal/metrics"
)

type entry struct {
	conv       Conversation
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryStore is the single-node implementation of Store.
type memoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	entries  map[string]*entry
	inflight map[string]struct{}
	stats    Stats
	janitor  *janitor
}

// NewMemoryStore creates an in-memory session store. Sessions expire
// after ttl; expired entries are swept every cleanupInterval.
func NewMemoryStore(ttl, cleanupInterval time.Duration) Store {
	s := &memoryStore{
		ttl:      ttl,
		entries:  make(map[string]*entry),
		inflight: make(map[string]struct{}),
	}

	if cleanupInterval > 0 {
		s.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go s.janitor.run(s)
	}

	return s
}

func (s *memoryStore) Conversation(_ context.Context, sessionID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[sessionID]
	if !found || e.isExpired() {
		s.stats.Misses++
		metrics.IncSessionCacheOp("memory", "miss")
		return Conversation{}, false
	}

	s.stats.Hits++
	metrics.IncSessionCacheOp("memory", "hit")
	return e.conv, true
}

func (s *memoryStore) Save(_ context.Context, conv Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[conv.SessionID] = &entry{
		conv:       conv,
		expiration: time.Now().Add(s.ttl),
	}
	s.stats.Sets++
	metrics.IncSessionCacheOp("memory", "set")
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

func (s *memoryStore) Acquire(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *memoryStore) Release(_ context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

func (s *memoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.CurrentSize = len(s.entries)
	return stats
}

// Ping always succeeds for the in-process store.
func (s *memoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *memoryStore) deleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, e := range s.entries {
		if e.isExpired() {
			delete(s.entries, id)
			count++
		}
	}
	s.stats.Evictions += int64(count)
	return count
}

// Stop halts the cleanup goroutine.
func (s *memoryStore) Stop() {
	if s.janitor != nil {
		s.janitor.stop <- struct{}{}
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(s *memoryStore) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
