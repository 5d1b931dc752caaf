package dto

import "time"

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// ConnectionResponse is one connected platform account. Credential fields
// never appear here.
type ConnectionResponse struct {
	ID         string     `json:"id"`
	Platform   string     `json:"platform"`
	ShopID     string     `json:"shop_id"`
	ShopName   string     `json:"shop_name,omitempty"`
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BeginAuthResponse carries the authorize URL the frontend redirects to
type BeginAuthResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// ConnectPrintifyRequest carries the pasted personal access token
type ConnectPrintifyRequest struct {
	PersonalAccessToken string `json:"personal_access_token" binding:"required"`
}

// BeginShopifyRequest carries the shop domain entered by the user
type BeginShopifyRequest struct {
	ShopDomain string `json:"shop_domain" binding:"required"`
}

// TriggerSyncRequest optionally narrows a manual sync to one platform
type TriggerSyncRequest struct {
	Platform string `json:"platform" binding:"omitempty,oneof=etsy shopify printify"`
}

// TriggerSyncResponse reports how many jobs the trigger queued
type TriggerSyncResponse struct {
	JobsQueued int `json:"jobs_queued"`
}

// SyncJobResponse is one queued unit of sync work
type SyncJobResponse struct {
	ID               string     `json:"id"`
	JobType          string     `json:"job_type"`
	Status           string     `json:"status"`
	Priority         int        `json:"priority"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
	Error            string     `json:"error,omitempty"`
}
