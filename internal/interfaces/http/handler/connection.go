package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sellerpulse/backend/internal/application/connector"
	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
	"github.com/sellerpulse/backend/internal/interfaces/http/middleware"
)

// ConnectionHandler exposes the user's platform connections
type ConnectionHandler struct {
	BaseHandler
	connections *connector.Service
}

// NewConnectionHandler creates the connection handler
func NewConnectionHandler(connections *connector.Service) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// RegisterRoutes registers connection routes on the authenticated group
func (h *ConnectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conns := rg.Group("/connections")
	{
		conns.GET("", h.List)
		conns.DELETE("/:platform", h.Disconnect)
	}
}

// List returns every platform connection for the current user
func (h *ConnectionHandler) List(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	accounts, err := h.connections.ListConnections(c.Request.Context(), userID)
	if err != nil {
		h.InternalError(c, "Could not list connections")
		return
	}

	resp := make([]dto.ConnectionResponse, 0, len(accounts))
	for _, acct := range accounts {
		resp = append(resp, toConnectionResponse(&acct))
	}
	h.Success(c, resp)
}

// Disconnect marks the user's connection for a platform disconnected
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	platform := account.Platform(c.Param("platform"))
	if !platform.IsValid() {
		h.BadRequest(c, "Unknown platform")
		return
	}

	if err := h.connections.Disconnect(c.Request.Context(), userID, platform); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			h.NotFound(c, "No connection for this platform")
			return
		}
		h.InternalError(c, "Could not disconnect")
		return
	}
	h.NoContent(c)
}

func toConnectionResponse(acct *account.ConnectedAccount) dto.ConnectionResponse {
	return dto.ConnectionResponse{
		ID:         acct.ID.String(),
		Platform:   acct.Platform.String(),
		ShopID:     acct.ShopID,
		ShopName:   acct.ShopName,
		Status:     string(acct.Status),
		LastSyncAt: acct.LastSyncAt,
		LastError:  acct.LastError,
		CreatedAt:  acct.CreatedAt,
	}
}
