package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sellerpulse/backend/internal/application/syncqueue"
	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
	"github.com/sellerpulse/backend/internal/interfaces/http/middleware"
)

// SyncHandler exposes manual sync triggers and queue state
type SyncHandler struct {
	BaseHandler
	queue *syncqueue.Gateway
}

// NewSyncHandler creates the sync handler
func NewSyncHandler(queue *syncqueue.Gateway) *SyncHandler {
	return &SyncHandler{queue: queue}
}

// RegisterRoutes registers sync routes on the authenticated group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/trigger", h.Trigger)
		sync.GET("/jobs", h.ListJobs)
	}
}

// Trigger queues manual-priority sync jobs, optionally for one platform
func (h *SyncHandler) Trigger(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body")
			return
		}
	}

	inserted, err := h.queue.TriggerManual(c.Request.Context(), userID, account.Platform(req.Platform))
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound):
			h.NotFound(c, "No connection for this platform")
		case errors.Is(err, account.ErrNotConnected):
			h.ErrorWithCode(c, dto.ErrCodeNotConnected, "Platform is not connected")
		default:
			h.InternalError(c, "Could not queue sync")
		}
		return
	}
	h.Success(c, dto.TriggerSyncResponse{JobsQueued: inserted})
}

// ListJobs returns the user's recent sync jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.queue.ListJobs(c.Request.Context(), userID, limit)
	if err != nil {
		h.InternalError(c, "Could not list sync jobs")
		return
	}

	resp := make([]dto.SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, dto.SyncJobResponse{
			ID:               job.ID.String(),
			JobType:          job.JobType.String(),
			Status:           string(job.Status),
			Priority:         job.Priority,
			CreatedAt:        job.CreatedAt,
			StartedAt:        job.StartedAt,
			CompletedAt:      job.CompletedAt,
			RecordsProcessed: job.RecordsProcessed,
			Error:            job.Error,
		})
	}
	h.Success(c, resp)
}
