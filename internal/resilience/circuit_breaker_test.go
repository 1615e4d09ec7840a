package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 30*time.Second, WithClock(clock))

	fail := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(fail))
	}
	assert.Equal(t, string(StateOpen), cb.State())

	// While open, calls are rejected without running fn.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(clock))

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	require.Equal(t, string(StateOpen), cb.State())

	// Probe admitted after the reset timeout; success closes the breaker.
	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, string(StateClosed), cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(clock))

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	clock.now = clock.now.Add(11 * time.Second)
	require.Error(t, cb.Execute(func() error { return errors.New("still down") }))
	assert.Equal(t, string(StateOpen), cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 30*time.Second)

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	assert.Equal(t, string(StateClosed), cb.State())
}
