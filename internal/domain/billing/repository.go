package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for billing profile persistence
type Repository interface {
	// FindByUserID finds the profile for a user
	FindByUserID(ctx context.Context, userID uuid.UUID) (*BillingProfile, error)

	// FindByStripeCustomerID finds the profile owning a Stripe customer
	FindByStripeCustomerID(ctx context.Context, customerID string) (*BillingProfile, error)

	// FindByStripeSubscriptionID finds the profile owning a Stripe subscription
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*BillingProfile, error)

	// Save creates or updates a profile
	Save(ctx context.Context, profile *BillingProfile) error
}
