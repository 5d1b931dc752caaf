// Package platform holds the outbound HTTP clients for the commerce
// platforms. Each client owns its http.Client and exposes only the calls
// the connector and schedulers need; tokens are always passed in plaintext
// by the caller and never stored here.
package platform

import (
	"errors"
	"fmt"
	"time"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

// maxResponseSize caps API response bodies (2MB)
const maxResponseSize = 2 * 1024 * 1024

const defaultTimeout = 15 * time.Second

var (
	// ErrInvalidCredential means the platform rejected the credential
	// outright (401/403 or a failed token exchange).
	ErrInvalidCredential = shared.Classify(shared.ErrUpstream, "platform: credential rejected")

	// ErrRefreshRefused means the platform refused to refresh an access
	// token. The connection must be re-authorized by the user.
	ErrRefreshRefused = shared.Classify(shared.ErrUpstream, "platform: token refresh refused")

	// ErrRequestFailed covers transport errors and unexpected upstream
	// status codes.
	ErrRequestFailed = shared.Classify(shared.ErrUpstream, "platform: request failed")
)

// statusError carries the upstream status code alongside the sentinel it
// maps to, so callers can branch on specific codes when they need to.
type statusError struct {
	status  int
	wrapped error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v (status %d)", e.wrapped, e.status)
}

func (e *statusError) Unwrap() error {
	return e.wrapped
}

func asStatusError(err error, target **statusError) bool {
	return errors.As(err, target)
}

// TokenResponse is the result of an OAuth token exchange or refresh
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// ShopInfo is the external shop identity as reported by the platform
type ShopInfo struct {
	ShopID   string
	ShopName string
}
