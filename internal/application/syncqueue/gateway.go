// Package syncqueue exposes the write side of the sync job queue. The queue
// is drained by an external worker fleet; this service only creates rows,
// deduplicates queued work, and reports queue state.
package syncqueue

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

// EnqueueResult reports what happened to a single enqueue request
type EnqueueResult string

const (
	// ResultInserted means a new job row was created
	ResultInserted EnqueueResult = "inserted"
	// ResultDeduplicated means an identical job was already queued
	ResultDeduplicated EnqueueResult = "deduplicated"
)

// Gateway is the application service in front of the sync job queue
type Gateway struct {
	jobs     syncqueue.Repository
	accounts account.Repository
	logger   *zap.Logger
}

// NewGateway creates a sync queue gateway
func NewGateway(jobs syncqueue.Repository, accounts account.Repository, logger *zap.Logger) *Gateway {
	return &Gateway{
		jobs:     jobs,
		accounts: accounts,
		logger:   logger.Named("syncqueue"),
	}
}

// Enqueue queues one job unless an identical (user, job type) is already
// waiting. The existence check and the insert are not atomic; a concurrent
// delivery that slips past the check collides with the queued-dedup index
// instead, and the dropped insert is reported as a dedup rather than an
// error.
func (g *Gateway) Enqueue(ctx context.Context, userID uuid.UUID, jobType syncqueue.JobType, priority int, metadata map[string]string) (EnqueueResult, error) {
	exists, err := g.jobs.ExistsQueued(ctx, userID, jobType)
	if err != nil {
		return "", err
	}
	if exists {
		g.logger.Debug("Sync job deduplicated",
			zap.String("user_id", userID.String()),
			zap.String("job_type", jobType.String()),
		)
		return ResultDeduplicated, nil
	}

	job, err := syncqueue.NewSyncJob(userID, jobType, priority, metadata)
	if err != nil {
		return "", err
	}
	inserted, err := g.jobs.Insert(ctx, job)
	if err != nil {
		return "", err
	}
	if !inserted {
		g.logger.Debug("Sync job deduplicated on insert",
			zap.String("user_id", userID.String()),
			zap.String("job_type", jobType.String()),
		)
		return ResultDeduplicated, nil
	}

	g.logger.Info("Sync job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("job_type", jobType.String()),
		zap.Int("priority", priority),
	)
	return ResultInserted, nil
}

// EnqueueInitial queues the full backfill batch for a freshly connected
// platform. Initial jobs skip the dedup read: a reconnect is an explicit
// request for a fresh backfill. A job type that already has a queued row,
// left over from a webhook or periodic pass, collides with the queued-dedup
// index and is skipped without aborting the rest of the batch.
func (g *Gateway) EnqueueInitial(ctx context.Context, userID uuid.UUID, platform account.Platform) error {
	for _, jobType := range syncqueue.InitialJobTypes(platform) {
		job, err := syncqueue.NewSyncJob(userID, jobType, syncqueue.PriorityInitial, map[string]string{
			"trigger": syncqueue.TriggerInitial,
		})
		if err != nil {
			return err
		}
		inserted, err := g.jobs.Insert(ctx, job)
		if err != nil {
			return err
		}
		if !inserted {
			g.logger.Debug("Initial sync job already queued",
				zap.String("user_id", userID.String()),
				zap.String("job_type", jobType.String()),
			)
		}
	}

	g.logger.Info("Initial sync batch enqueued",
		zap.String("user_id", userID.String()),
		zap.String("platform", platform.String()),
	)
	return nil
}

// TriggerManual queues manual-priority jobs for the user's connected
// platforms. With a platform given, only that platform's job types are
// queued; otherwise every connected platform is covered. Deduplication
// applies as for any non-initial trigger.
func (g *Gateway) TriggerManual(ctx context.Context, userID uuid.UUID, platform account.Platform) (int, error) {
	var platforms []account.Platform
	if platform != "" {
		acct, err := g.accounts.FindByUserAndPlatform(ctx, userID, platform)
		if err != nil {
			return 0, err
		}
		if !acct.IsConnected() {
			return 0, account.ErrNotConnected
		}
		platforms = []account.Platform{platform}
	} else {
		accounts, err := g.accounts.FindByUser(ctx, userID)
		if err != nil {
			return 0, err
		}
		for _, acct := range accounts {
			if acct.IsConnected() {
				platforms = append(platforms, acct.Platform)
			}
		}
	}

	inserted := 0
	for _, p := range platforms {
		for _, jobType := range syncqueue.InitialJobTypes(p) {
			result, err := g.Enqueue(ctx, userID, jobType, syncqueue.PriorityManual, map[string]string{
				"trigger": syncqueue.TriggerManual,
			})
			if err != nil {
				return inserted, err
			}
			if result == ResultInserted {
				inserted++
			}
		}
	}
	return inserted, nil
}

// EnqueuePeriodic queues low-priority catch-up jobs for every connected
// account. Called by the periodic scheduler; returns the number of jobs
// actually inserted after deduplication.
func (g *Gateway) EnqueuePeriodic(ctx context.Context) (int, error) {
	accounts, err := g.accounts.FindConnected(ctx, "")
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, acct := range accounts {
		for _, jobType := range syncqueue.InitialJobTypes(acct.Platform) {
			result, err := g.Enqueue(ctx, acct.UserID, jobType, syncqueue.PriorityPeriodic, map[string]string{
				"trigger": syncqueue.TriggerPeriodic,
			})
			if err != nil {
				g.logger.Error("Periodic enqueue failed",
					zap.String("user_id", acct.UserID.String()),
					zap.String("job_type", jobType.String()),
					zap.Error(err),
				)
				continue
			}
			if result == ResultInserted {
				inserted++
			}
		}
	}
	return inserted, nil
}

// ListJobs returns the user's recent jobs
func (g *Gateway) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]syncqueue.SyncJob, error) {
	return g.jobs.FindByUser(ctx, userID, limit)
}

// QueueDepth returns the number of queued jobs for a user
func (g *Gateway) QueueDepth(ctx context.Context, userID uuid.UUID) (int64, error) {
	return g.jobs.CountByStatus(ctx, userID, syncqueue.StatusQueued)
}
