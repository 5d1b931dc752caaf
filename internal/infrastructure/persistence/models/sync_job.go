package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

// SyncJobModel is the persistence model for the SyncJob domain entity
type SyncJobModel struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_sync_job_user_type_status,priority:1"`
	JobType          syncqueue.JobType `gorm:"type:varchar(30);not null;index:idx_sync_job_user_type_status,priority:2"`
	Status           syncqueue.Status  `gorm:"type:varchar(20);not null;default:'queued';index:idx_sync_job_user_type_status,priority:3"`
	Priority         int               `gorm:"not null;default:1;index:idx_sync_job_pickup,priority:1,sort:desc"`
	MetadataJSON     string            `gorm:"type:jsonb;column:metadata"`
	CreatedAt        time.Time         `gorm:"not null;index:idx_sync_job_pickup,priority:2"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
	RecordsProcessed int    `gorm:"not null;default:0"`
	Error            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *syncqueue.SyncJob {
	job := &syncqueue.SyncJob{
		ID:               m.ID,
		UserID:           m.UserID,
		JobType:          m.JobType,
		Status:           m.Status,
		Priority:         m.Priority,
		Metadata:         map[string]string{},
		CreatedAt:        m.CreatedAt,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		RecordsProcessed: m.RecordsProcessed,
		Error:            m.Error,
	}

	if m.MetadataJSON != "" {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			job.Metadata = metadata
		}
	}

	return job
}

// FromDomain populates the persistence model from a domain SyncJob
func (m *SyncJobModel) FromDomain(j *syncqueue.SyncJob) {
	m.ID = j.ID
	m.UserID = j.UserID
	m.JobType = j.JobType
	m.Status = j.Status
	m.Priority = j.Priority
	m.CreatedAt = j.CreatedAt
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.RecordsProcessed = j.RecordsProcessed
	m.Error = j.Error

	if len(j.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(j.Metadata); err == nil {
			m.MetadataJSON = string(jsonBytes)
		}
	} else {
		m.MetadataJSON = "{}"
	}
}

// SyncJobModelFromDomain creates a persistence model from a domain entity
func SyncJobModelFromDomain(j *syncqueue.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}
