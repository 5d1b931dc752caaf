package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerpulse/backend/internal/domain/billing"
	"github.com/sellerpulse/backend/internal/infrastructure/persistence/models"
)

// GormBillingProfileRepository implements billing.Repository using GORM
type GormBillingProfileRepository struct {
	db *gorm.DB
}

// NewGormBillingProfileRepository creates a new GormBillingProfileRepository
func NewGormBillingProfileRepository(db *gorm.DB) *GormBillingProfileRepository {
	return &GormBillingProfileRepository{db: db}
}

// FindByUserID finds the profile for a user
func (r *GormBillingProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.BillingProfile, error) {
	var model models.BillingProfileModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStripeCustomerID finds the profile owning a Stripe customer
func (r *GormBillingProfileRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*billing.BillingProfile, error) {
	var model models.BillingProfileModel
	if err := r.db.WithContext(ctx).First(&model, "stripe_customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStripeSubscriptionID finds the profile owning a Stripe subscription
func (r *GormBillingProfileRepository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*billing.BillingProfile, error) {
	var model models.BillingProfileModel
	if err := r.db.WithContext(ctx).First(&model, "stripe_subscription_id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a profile. One profile per user is enforced by
// upserting on user_id.
func (r *GormBillingProfileRepository) Save(ctx context.Context, profile *billing.BillingProfile) error {
	model := models.BillingProfileModelFromDomain(profile)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stripe_customer_id", "stripe_subscription_id",
				"plan", "status", "orders_synced",
				"period_start", "period_end", "updated_at",
			}),
		}).
		Create(model).Error
}

var _ billing.Repository = (*GormBillingProfileRepository)(nil)
