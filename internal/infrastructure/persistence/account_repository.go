package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/infrastructure/persistence/models"
)

// GormAccountRepository implements account.Repository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds a connected account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.ConnectedAccount, error) {
	var model models.ConnectedAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserAndPlatform finds the single row for a (user, platform) pair
func (r *GormAccountRepository) FindByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform account.Platform) (*account.ConnectedAccount, error) {
	var model models.ConnectedAccountModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformShopID resolves the owning account for an inbound webhook
func (r *GormAccountRepository) FindByPlatformShopID(ctx context.Context, platform account.Platform, shopID string) (*account.ConnectedAccount, error) {
	var model models.ConnectedAccountModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND shop_id = ?", platform, shopID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser finds all connections for a user
func (r *GormAccountRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]account.ConnectedAccount, error) {
	var accountModels []models.ConnectedAccountModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("platform ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]account.ConnectedAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// FindConnected finds all accounts in the connected state, optionally
// filtered by platform
func (r *GormAccountRepository) FindConnected(ctx context.Context, platform account.Platform) ([]account.ConnectedAccount, error) {
	query := r.db.WithContext(ctx).Where("status = ?", account.StatusConnected)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var accountModels []models.ConnectedAccountModel
	if err := query.Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]account.ConnectedAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// FindTokenExpiring finds connected accounts whose credential expires within
// the given window
func (r *GormAccountRepository) FindTokenExpiring(ctx context.Context, platform account.Platform, within time.Duration) ([]account.ConnectedAccount, error) {
	deadline := time.Now().Add(within)
	query := r.db.WithContext(ctx).
		Where("status = ?", account.StatusConnected).
		Where("token_expires_at IS NOT NULL AND token_expires_at < ?", deadline)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var accountModels []models.ConnectedAccountModel
	if err := query.Order("token_expires_at ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]account.ConnectedAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// Upsert creates or replaces the row for (user, platform). A re-authorization
// overwrites credentials, shop identity, and status in place; created_at and
// the row id are preserved on conflict.
func (r *GormAccountRepository) Upsert(ctx context.Context, acct *account.ConnectedAccount) error {
	model := models.ConnectedAccountModelFromDomain(acct)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"shop_id", "shop_name", "status",
				"access_token", "refresh_token", "token_expires_at",
				"webhook_secret", "last_error", "updated_at",
			}),
		}).
		Create(model).Error
}

// Save updates an existing account
func (r *GormAccountRepository) Save(ctx context.Context, acct *account.ConnectedAccount) error {
	model := models.ConnectedAccountModelFromDomain(acct)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// UpdateStatus transitions the lifecycle status without touching credentials
func (r *GormAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status account.Status, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ConnectedAccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// Delete removes the row; used only on full user account deletion
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ConnectedAccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

var _ account.Repository = (*GormAccountRepository)(nil)
