package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerpulse/backend/internal/domain/syncqueue"
	"github.com/sellerpulse/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements syncqueue.Repository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Insert inserts a new job row. The queued-dedup partial index allows at most
// one queued row per (user, job_type); inserts that collide with it are
// dropped and reported as not inserted.
func (r *GormSyncJobRepository) Insert(ctx context.Context, job *syncqueue.SyncJob) (bool, error) {
	model := models.SyncJobModelFromDomain(job)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExistsQueued reports whether a job of (user, jobType) is already queued
func (r *GormSyncJobRepository) ExistsQueued(ctx context.Context, userID uuid.UUID, jobType syncqueue.JobType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("user_id = ? AND job_type = ? AND status = ?", userID, jobType, syncqueue.StatusQueued).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByID finds a job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncqueue.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncqueue.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUser lists a user's jobs, most recent first, up to limit
func (r *GormSyncJobRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]syncqueue.SyncJob, error) {
	if limit <= 0 {
		limit = 50
	}

	var jobModels []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]syncqueue.SyncJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

// CountByStatus counts jobs in a given status for a user
func (r *GormSyncJobRepository) CountByStatus(ctx context.Context, userID uuid.UUID, status syncqueue.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error
	return count, err
}

var _ syncqueue.Repository = (*GormSyncJobRepository)(nil)
