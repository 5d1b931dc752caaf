package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRefresher struct {
	calls  atomic.Int64
	window atomic.Value
	err    error
}

func (f *fakeRefresher) RefreshExpiring(_ context.Context, within time.Duration) error {
	f.calls.Add(1)
	f.window.Store(within)
	return f.err
}

type fakeEnqueuer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeEnqueuer) EnqueuePeriodic(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestTokenRefreshSchedulerRunOnce(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewTokenRefreshScheduler(refresher, time.Hour, 45*time.Minute, zap.NewNop())

	s.runOnce(context.Background())

	assert.Equal(t, int64(1), refresher.calls.Load())
	assert.Equal(t, 45*time.Minute, refresher.window.Load())
}

func TestTokenRefreshSchedulerTicks(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewTokenRefreshScheduler(refresher, 10*time.Millisecond, time.Hour, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	// Stop is idempotent.
	s.Stop()
}

func TestTokenRefreshSchedulerStopsTicking(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewTokenRefreshScheduler(refresher, 10*time.Millisecond, time.Hour, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	settled := refresher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, refresher.calls.Load())
}

func TestPeriodicSyncSchedulerTicks(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewPeriodicSyncScheduler(enqueuer, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return enqueuer.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}
