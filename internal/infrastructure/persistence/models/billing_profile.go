package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/billing"
)

// BillingProfileModel is the persistence model for the BillingProfile entity
type BillingProfileModel struct {
	ID                   uuid.UUID                  `gorm:"type:uuid;primary_key"`
	UserID               uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_billing_user"`
	StripeCustomerID     string                     `gorm:"type:varchar(100);index:idx_billing_customer"`
	StripeSubscriptionID string                     `gorm:"type:varchar(100);index:idx_billing_subscription"`
	Plan                 billing.Plan               `gorm:"type:varchar(20);not null;default:'free'"`
	Status               billing.SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'"`
	OrdersSynced         int                        `gorm:"not null;default:0"`
	PeriodStart          *time.Time
	PeriodEnd            *time.Time
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingProfileModel) TableName() string {
	return "billing_profiles"
}

// ToDomain converts the persistence model to a domain BillingProfile
func (m *BillingProfileModel) ToDomain() *billing.BillingProfile {
	return &billing.BillingProfile{
		ID:                   m.ID,
		UserID:               m.UserID,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		Plan:                 m.Plan,
		Status:               m.Status,
		OrdersSynced:         m.OrdersSynced,
		PeriodStart:          m.PeriodStart,
		PeriodEnd:            m.PeriodEnd,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain BillingProfile
func (m *BillingProfileModel) FromDomain(p *billing.BillingProfile) {
	m.ID = p.ID
	m.UserID = p.UserID
	m.StripeCustomerID = p.StripeCustomerID
	m.StripeSubscriptionID = p.StripeSubscriptionID
	m.Plan = p.Plan
	m.Status = p.Status
	m.OrdersSynced = p.OrdersSynced
	m.PeriodStart = p.PeriodStart
	m.PeriodEnd = p.PeriodEnd
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// BillingProfileModelFromDomain creates a persistence model from a domain entity
func BillingProfileModelFromDomain(p *billing.BillingProfile) *BillingProfileModel {
	m := &BillingProfileModel{}
	m.FromDomain(p)
	return m
}
