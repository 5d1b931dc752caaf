package syncqueue

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// SyncJob Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidUserID   = shared.Classify(shared.ErrValidation, "syncqueue: invalid user ID")
	ErrInvalidJobType  = shared.Classify(shared.ErrValidation, "syncqueue: invalid job type")
	ErrInvalidPriority = shared.Classify(shared.ErrValidation, "syncqueue: priority must be positive")
	ErrJobNotFound     = shared.Classify(shared.ErrNotFound, "syncqueue: job not found")
)

// ---------------------------------------------------------------------------
// JobType
// ---------------------------------------------------------------------------

// JobType identifies a unit of sync work as platform × resource
type JobType string

const (
	JobTypeEtsyOrders       JobType = "etsy_orders"
	JobTypeEtsyListings     JobType = "etsy_listings"
	JobTypeEtsyShop         JobType = "etsy_shop"
	JobTypeShopifyOrders    JobType = "shopify_orders"
	JobTypeShopifyProducts  JobType = "shopify_products"
	JobTypeShopifyCustomers JobType = "shopify_customers"
	JobTypePrintifyOrders   JobType = "printify_orders"
	JobTypePrintifyProducts JobType = "printify_products"
)

// IsValid returns true if the job type is known
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeEtsyOrders, JobTypeEtsyListings, JobTypeEtsyShop,
		JobTypeShopifyOrders, JobTypeShopifyProducts, JobTypeShopifyCustomers,
		JobTypePrintifyOrders, JobTypePrintifyProducts:
		return true
	default:
		return false
	}
}

// String returns the string representation of JobType
func (t JobType) String() string {
	return string(t)
}

// InitialJobTypes returns the batch of job types enqueued when a platform
// is first connected.
func InitialJobTypes(platform account.Platform) []JobType {
	switch platform {
	case account.PlatformEtsy:
		return []JobType{JobTypeEtsyOrders, JobTypeEtsyListings, JobTypeEtsyShop}
	case account.PlatformShopify:
		return []JobType{JobTypeShopifyOrders, JobTypeShopifyProducts, JobTypeShopifyCustomers}
	case account.PlatformPrintify:
		return []JobType{JobTypePrintifyOrders, JobTypePrintifyProducts}
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Status and Priority
// ---------------------------------------------------------------------------

// Status represents the lifecycle of a queued unit of work. Transitions past
// queued are driven by the external sync worker, not by this service.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Priorities, higher = more urgent. Webhook-triggered jobs outrank manual and
// periodic triggers so event-driven updates are picked up ahead of polling.
const (
	PriorityPeriodic = 1
	PriorityManual   = 5
	PriorityInitial  = 5
	PriorityWebhook  = 10
)

// Trigger sources recorded in job metadata
const (
	TriggerInitial  = "initial_connection"
	TriggerWebhook  = "webhook"
	TriggerManual   = "manual"
	TriggerPeriodic = "periodic"
)

// ---------------------------------------------------------------------------
// SyncJob
// ---------------------------------------------------------------------------

// SyncJob is one row per unit of queued work. It is produced by the connector
// (initial backfill) and the webhook verifier (incremental sync), and consumed
// by an external worker.
type SyncJob struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	JobType  JobType
	Status   Status
	Priority int

	// Metadata carries the trigger source and, for webhook-triggered jobs,
	// the originating event id.
	Metadata map[string]string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	RecordsProcessed int
	Error            string
}

// NewSyncJob creates a queued sync job
func NewSyncJob(userID uuid.UUID, jobType JobType, priority int, metadata map[string]string) (*SyncJob, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if !jobType.IsValid() {
		return nil, ErrInvalidJobType
	}
	if priority <= 0 {
		return nil, ErrInvalidPriority
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &SyncJob{
		ID:        uuid.New(),
		UserID:    userID,
		JobType:   jobType,
		Status:    StatusQueued,
		Priority:  priority,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}

// Start marks the job running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = StatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job completed with the number of records processed
func (j *SyncJob) Complete(recordsProcessed int) {
	now := time.Now()
	j.Status = StatusCompleted
	j.CompletedAt = &now
	j.RecordsProcessed = recordsProcessed
}

// Fail marks the job failed with an error message
func (j *SyncJob) Fail(message string) {
	now := time.Now()
	j.Status = StatusFailed
	j.CompletedAt = &now
	j.Error = message
}

// IsQueued returns true while the job waits for a worker
func (j *SyncJob) IsQueued() bool {
	return j.Status == StatusQueued
}
