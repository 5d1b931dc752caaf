// Package scheduler runs the background maintenance loops: proactive token
// refresh and periodic sync enqueueing. Both are thin tickers around
// application services; the heavy lifting stays out of this package.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSchedulerRunning = errors.New("scheduler: already running")

// TokenRefresher refreshes credentials that expire within the window
type TokenRefresher interface {
	RefreshExpiring(ctx context.Context, within time.Duration) error
}

// TokenRefreshScheduler periodically refreshes expiring access tokens so
// sync workers never pick up a dead credential.
type TokenRefreshScheduler struct {
	refresher TokenRefresher
	interval  time.Duration
	window    time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewTokenRefreshScheduler creates a token refresh scheduler
func NewTokenRefreshScheduler(refresher TokenRefresher, interval, window time.Duration, logger *zap.Logger) *TokenRefreshScheduler {
	return &TokenRefreshScheduler{
		refresher: refresher,
		interval:  interval,
		window:    window,
		logger:    logger.Named("token_refresh"),
	}
}

// Start launches the refresh loop
func (s *TokenRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Token refresh scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("window", s.window),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight pass to finish
func (s *TokenRefreshScheduler) Stop() {
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
	s.logger.Info("Token refresh scheduler stopped")
}

func (s *TokenRefreshScheduler) run(ctx context.Context) {
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

// runOnce performs a single refresh pass
func (s *TokenRefreshScheduler) runOnce(ctx context.Context) {
	if err := s.refresher.RefreshExpiring(ctx, s.window); err != nil {
		s.logger.Error("Token refresh pass failed", zap.Error(err))
		return
	}
	s.logger.Debug("Token refresh pass completed")
}
