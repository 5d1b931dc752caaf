package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// BillingProfile Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidUserID     = shared.Classify(shared.ErrValidation, "billing: invalid user ID")
	ErrInvalidPlan       = shared.Classify(shared.ErrValidation, "billing: invalid plan")
	ErrProfileNotFound   = shared.Classify(shared.ErrNotFound, "billing: profile not found")
	ErrMissingCustomerID = shared.Classify(shared.ErrValidation, "billing: missing Stripe customer ID")
)

// ---------------------------------------------------------------------------
// Plan
// ---------------------------------------------------------------------------

// Plan represents the subscription tier
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// IsValid returns true if the plan is a known tier
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// SubscriptionStatus
// ---------------------------------------------------------------------------

// SubscriptionStatus represents the billing state of a profile. The machine
// is terminal-free: a cancelled profile re-enters active on a new checkout.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// ---------------------------------------------------------------------------
// BillingProfile
// ---------------------------------------------------------------------------

// BillingProfile holds the subscription state for one user, driven entirely
// by billing-provider webhook events.
type BillingProfile struct {
	ID     uuid.UUID
	UserID uuid.UUID

	StripeCustomerID     string
	StripeSubscriptionID string

	Plan   Plan
	Status SubscriptionStatus

	// Usage counters for the current billing period
	OrdersSynced int

	PeriodStart *time.Time
	PeriodEnd   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBillingProfile creates a free-tier profile for a user
func NewBillingProfile(userID uuid.UUID) (*BillingProfile, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	now := time.Now()
	return &BillingProfile{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      PlanFree,
		Status:    SubscriptionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Activate moves the profile to active on the given paid plan, recording the
// subscription driving it. Used for checkout completion and for subscription
// updates whose upstream status is active.
func (p *BillingProfile) Activate(plan Plan, customerID, subscriptionID string) error {
	if !plan.IsValid() {
		return ErrInvalidPlan
	}
	p.Plan = plan
	if customerID != "" {
		p.StripeCustomerID = customerID
	}
	if subscriptionID != "" {
		p.StripeSubscriptionID = subscriptionID
	}
	p.Status = SubscriptionActive
	p.UpdatedAt = time.Now()
	return nil
}

// MarkPastDue flags a payment problem without revoking the plan
func (p *BillingProfile) MarkPastDue() {
	p.Status = SubscriptionPastDue
	p.UpdatedAt = time.Now()
}

// Cancel reverts the profile to the free-tier entitlement. The subscription
// id is cleared so a later checkout starts clean.
func (p *BillingProfile) Cancel() {
	p.Plan = PlanFree
	p.Status = SubscriptionCancelled
	p.StripeSubscriptionID = ""
	p.UpdatedAt = time.Now()
}

// ResetUsage zeroes the period counters when an invoice is paid
func (p *BillingProfile) ResetUsage(periodStart, periodEnd time.Time) {
	p.OrdersSynced = 0
	p.PeriodStart = &periodStart
	p.PeriodEnd = &periodEnd
	p.UpdatedAt = time.Now()
}
