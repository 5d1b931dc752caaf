package syncqueue

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for sync job persistence. The external
// worker that drains the queue has its own consuming interface; this side
// only creates rows and inspects queue state.
type Repository interface {
	// Insert inserts a new job row. It reports false when the row collided
	// with an already-queued (user, jobType) duplicate and was discarded.
	Insert(ctx context.Context, job *SyncJob) (bool, error)

	// ExistsQueued reports whether a job of (user, jobType) is already in
	// queued status. The check-then-insert pair in the gateway is not atomic
	// against concurrent deliveries; duplicates are benign.
	ExistsQueued(ctx context.Context, userID uuid.UUID, jobType JobType) (bool, error)

	// FindByID finds a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindByUser lists a user's jobs, most recent first, up to limit
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SyncJob, error)

	// CountByStatus counts jobs in a given status for a user
	CountByStatus(ctx context.Context, userID uuid.UUID, status Status) (int64, error)
}
