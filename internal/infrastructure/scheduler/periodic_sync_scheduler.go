package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeriodicEnqueuer enqueues low-priority catch-up jobs for every connected
// account
type PeriodicEnqueuer interface {
	EnqueuePeriodic(ctx context.Context) (int, error)
}

// PeriodicSyncScheduler enqueues periodic sync jobs as a safety net for
// webhook deliveries that never arrived.
type PeriodicSyncScheduler struct {
	enqueuer PeriodicEnqueuer
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPeriodicSyncScheduler creates a periodic sync scheduler
func NewPeriodicSyncScheduler(enqueuer PeriodicEnqueuer, interval time.Duration, logger *zap.Logger) *PeriodicSyncScheduler {
	return &PeriodicSyncScheduler{
		enqueuer: enqueuer,
		interval: interval,
		logger:   logger.Named("periodic_sync"),
	}
}

// Start launches the enqueue loop
func (s *PeriodicSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Periodic sync scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the loop and waits for an in-flight pass to finish
func (s *PeriodicSyncScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("Periodic sync scheduler stopped")
}

func (s *PeriodicSyncScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs a single enqueue pass
func (s *PeriodicSyncScheduler) runOnce(ctx context.Context) {
	enqueued, err := s.enqueuer.EnqueuePeriodic(ctx)
	if err != nil {
		s.logger.Error("Periodic sync pass failed", zap.Error(err))
		return
	}
	s.logger.Info("Periodic sync pass completed", zap.Int("jobs_enqueued", enqueued))
}
