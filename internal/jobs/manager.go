// Package jobs runs the asynchronous work behind the 202-accepted
// endpoints: streaming chat analyses and repository audits. A fixed
// worker pool drains a bounded queue; sessions are locked while a job
// for them is queued or running.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/session"
)

var (
	// ErrSessionBusy means a job for the session is already queued or
	// running. Handlers map it to 409.
	ErrSessionBusy = errors.New("jobs: session already has a request in flight")
	// ErrQueueFull means the queue rejected the job. Handlers map it
	// to 503.
	ErrQueueFull = errors.New("jobs: queue is full")
	// ErrClosed means the manager is shutting down.
	ErrClosed = errors.New("jobs: manager is closed")
)

// Job is one unit of background work.
type Job struct {
	ID   string
	Kind string // "chat" or "analysis"
	// SessionID, when set, serializes jobs per session.
	SessionID string
	Run       func(ctx context.Context) error
}

// Config sizes the pool.
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Manager owns the worker pool.
type Manager struct {
	cfg      Config
	sessions session.Store

	mu     sync.Mutex
	closed bool
	queue  chan Job
	wg     sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewManager builds a stopped manager; call Start before Enqueue.
func NewManager(cfg Config, sessions session.Store) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Manager{
		cfg:      cfg,
		sessions: sessions,
		queue:    make(chan Job, cfg.QueueSize),
	}
}

// Start launches the workers. Jobs inherit ctx, so cancelling it stops
// in-flight work.
func (m *Manager) Start(ctx context.Context) {
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	logger := log.WithComponent("jobs")
	logger.Info().
		Int("workers", m.cfg.Workers).
		Int("queue_size", m.cfg.QueueSize).
		Msg("job manager started")
}

// Enqueue accepts a job and returns its assigned id.
func (m *Manager) Enqueue(ctx context.Context, job Job) (string, error) {
	if job.SessionID != "" && !m.sessions.Acquire(ctx, job.SessionID) {
		return "", ErrSessionBusy
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	// The send happens under the same lock Close takes before closing
	// the queue, so a send on a closed channel cannot occur.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if job.SessionID != "" {
			m.sessions.Release(ctx, job.SessionID)
		}
		return "", ErrClosed
	}

	select {
	case m.queue <- job:
		m.mu.Unlock()
		logger := log.WithComponent("jobs")
		logger.Info().
			Str(log.FieldJobID, job.ID).
			Str(log.FieldSessionID, job.SessionID).
			Str("kind", job.Kind).
			Msg("job enqueued")
		return job.ID, nil
	default:
		m.mu.Unlock()
		if job.SessionID != "" {
			m.sessions.Release(ctx, job.SessionID)
		}
		return "", ErrQueueFull
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.baseCtx.Done():
			return
		case job, ok := <-m.queue:
			if !ok {
				return
			}
			m.process(job)
		}
	}
}

func (m *Manager) process(job Job) {
	ctx, cancel := context.WithTimeout(m.baseCtx, m.cfg.JobTimeout)
	defer cancel()

	ctx = log.ContextWithJobID(ctx, job.ID)
	if job.SessionID != "" {
		ctx = log.ContextWithSessionID(ctx, job.SessionID)
		defer m.sessions.Release(context.WithoutCancel(ctx), job.SessionID)
	}

	logger := log.WithComponentFromContext(ctx, "jobs")
	metrics.JobStarted()
	start := time.Now()

	err := job.Run(ctx)

	if err != nil {
		metrics.JobFinished("error")
		logger.Error().Err(err).Str("kind", job.Kind).Dur("duration", time.Since(start)).Msg("job failed")
		return
	}
	metrics.JobFinished("done")
	logger.Info().Str("kind", job.Kind).Dur("duration", time.Since(start)).Msg("job finished")
}

// Close stops accepting jobs, drains the queue and waits for workers.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	logger := log.WithComponent("jobs")
	logger.Info().Msg("job manager stopped")
}
