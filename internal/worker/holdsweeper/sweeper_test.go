package holdsweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubBookingRepo struct {
	mu      sync.Mutex
	expired int64
	err     error
	calls   int
}

func (r *stubBookingRepo) ExpireHeld(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.expired, r.err
}

type stubPurger struct {
	mu    sync.Mutex
	calls int
}

func (p *stubPurger) PurgeExpired(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 0, nil
}

type stubMetrics struct {
	mu    sync.Mutex
	total int64
}

func (m *stubMetrics) AddExpiredHolds(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += n
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func TestSweeper_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	repo := &stubBookingRepo{expired: 3}
	purger := &stubPurger{}
	metrics := &stubMetrics{}
	s := New(repo, []KeyPurger{purger}, time.Hour, metrics, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Первый проход выполняется сразу, без ожидания интервала
	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.calls == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, int64(3), metrics.total)

	purger.mu.Lock()
	defer purger.mu.Unlock()
	assert.Equal(t, 1, purger.calls)
}

func TestSweeper_RepoErrorDoesNotStopLoop(t *testing.T) {
	repo := &stubBookingRepo{err: errors.New("db down")}
	purger := &stubPurger{}
	s := New(repo, []KeyPurger{purger}, 20*time.Millisecond, nil, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Несмотря на ошибку репозитория, тики продолжаются и чистка ключей идет
	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.calls >= 2
	}, time.Second, 10*time.Millisecond)
}
