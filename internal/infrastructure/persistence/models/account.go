package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/account"
)

// ConnectedAccountModel is the persistence model for the ConnectedAccount
// domain entity. Credential columns hold vault-encrypted blobs.
type ConnectedAccountModel struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_account_user_platform,priority:1;index:idx_account_user"`
	Platform       account.Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_user_platform,priority:2"`
	ShopID         string           `gorm:"type:varchar(100);not null;index:idx_account_platform_shop,priority:2"`
	ShopName       string           `gorm:"type:varchar(255)"`
	Status         account.Status   `gorm:"type:varchar(20);not null;default:'connected'"`
	AccessToken    string           `gorm:"type:text;not null"`
	RefreshToken   string           `gorm:"type:text"`
	TokenExpiresAt *time.Time
	WebhookSecret  string     `gorm:"type:text"`
	LegacyMetadata string     `gorm:"type:jsonb;column:legacy_metadata"`
	LastSyncAt     *time.Time `gorm:"index"`
	LastError      string     `gorm:"type:text"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConnectedAccountModel) TableName() string {
	return "connected_accounts"
}

// ToDomain converts the persistence model to a domain ConnectedAccount
func (m *ConnectedAccountModel) ToDomain() *account.ConnectedAccount {
	return &account.ConnectedAccount{
		ID:             m.ID,
		UserID:         m.UserID,
		Platform:       m.Platform,
		ShopID:         m.ShopID,
		ShopName:       m.ShopName,
		Status:         m.Status,
		AccessToken:    m.AccessToken,
		RefreshToken:   m.RefreshToken,
		TokenExpiresAt: m.TokenExpiresAt,
		WebhookSecret:  m.WebhookSecret,
		LegacyMetadata: m.LegacyMetadata,
		LastSyncAt:     m.LastSyncAt,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ConnectedAccount
func (m *ConnectedAccountModel) FromDomain(a *account.ConnectedAccount) {
	m.ID = a.ID
	m.UserID = a.UserID
	m.Platform = a.Platform
	m.ShopID = a.ShopID
	m.ShopName = a.ShopName
	m.Status = a.Status
	m.AccessToken = a.AccessToken
	m.RefreshToken = a.RefreshToken
	m.TokenExpiresAt = a.TokenExpiresAt
	m.WebhookSecret = a.WebhookSecret
	m.LegacyMetadata = a.LegacyMetadata
	m.LastSyncAt = a.LastSyncAt
	m.LastError = a.LastError
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// ConnectedAccountModelFromDomain creates a persistence model from a domain entity
func ConnectedAccountModelFromDomain(a *account.ConnectedAccount) *ConnectedAccountModel {
	m := &ConnectedAccountModel{}
	m.FromDomain(a)
	return m
}
