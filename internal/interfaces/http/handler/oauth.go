package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/application/connector"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
	"github.com/sellerpulse/backend/internal/infrastructure/logger"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
	"github.com/sellerpulse/backend/internal/interfaces/http/middleware"
)

// OAuthHandler drives the three platform connection flows. Begin endpoints
// are JWT-protected; callback endpoints are public browser redirects that
// authenticate via the signed transaction cookies instead, and always end
// in a redirect back to the frontend with either ?connected=<platform> or
// ?error=<code>.
type OAuthHandler struct {
	BaseHandler
	etsy        *connector.EtsyConnector
	shopify     *connector.ShopifyConnector
	printify    *connector.PrintifyConnector
	cookies     *cookieSigner
	frontendURL string
}

// NewOAuthHandler creates the OAuth flow handler
func NewOAuthHandler(etsy *connector.EtsyConnector, shopify *connector.ShopifyConnector, printify *connector.PrintifyConnector, appCfg config.AppConfig, sessionCfg config.SessionConfig) *OAuthHandler {
	return &OAuthHandler{
		etsy:        etsy,
		shopify:     shopify,
		printify:    printify,
		cookies:     newCookieSigner(sessionCfg),
		frontendURL: strings.TrimSuffix(appCfg.FrontendURL, "/"),
	}
}

// RegisterRoutes registers the JWT-protected begin/connect endpoints
func (h *OAuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	oauth := rg.Group("/oauth")
	{
		oauth.POST("/etsy/begin", h.BeginEtsy)
		oauth.POST("/shopify/begin", h.BeginShopify)
		oauth.POST("/printify/connect", h.ConnectPrintify)
	}
}

// RegisterCallbackRoutes registers the public browser callback endpoints
func (h *OAuthHandler) RegisterCallbackRoutes(rg *gin.RouterGroup) {
	oauth := rg.Group("/oauth")
	{
		oauth.GET("/etsy/callback", h.EtsyCallback)
		oauth.GET("/shopify/callback", h.ShopifyCallback)
	}
}

// BeginEtsy starts the Etsy authorization code flow
func (h *OAuthHandler) BeginEtsy(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	begin, err := h.etsy.BeginAuth(c.Request.Context())
	if err != nil {
		h.InternalError(c, "Could not start authorization")
		return
	}

	h.cookies.set(c, stateCookieName, userID.String()+"|"+begin.State)
	h.cookies.set(c, verifierCookieName, begin.CodeVerifier)
	h.Success(c, dto.BeginAuthResponse{AuthorizeURL: begin.AuthorizeURL})
}

// EtsyCallback completes the Etsy flow after the browser returns
func (h *OAuthHandler) EtsyCallback(c *gin.Context) {
	log := logger.FromGin(c)

	userID, ok := h.verifyState(c, c.Query("state"))
	if !ok {
		h.redirectError(c, connector.CodeInvalidState)
		return
	}

	verifier, err := h.cookies.read(c, verifierCookieName)
	h.cookies.clear(c, stateCookieName, verifierCookieName)
	if err != nil {
		h.redirectError(c, connector.CodeMissingVerifier)
		return
	}

	if err := h.etsy.CompleteAuth(c.Request.Context(), userID, c.Query("code"), verifier); err != nil {
		log.Warn("Etsy authorization failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		h.redirectError(c, connector.ErrorCode(err))
		return
	}
	h.redirectConnected(c, "etsy")
}

// BeginShopify starts the Shopify authorization flow for a shop domain
func (h *OAuthHandler) BeginShopify(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.BeginShopifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "shop_domain is required")
		return
	}

	begin, err := h.shopify.BeginAuth(c.Request.Context(), req.ShopDomain)
	if err != nil {
		h.InternalError(c, "Could not start authorization")
		return
	}

	h.cookies.set(c, stateCookieName, userID.String()+"|"+begin.State)
	h.Success(c, dto.BeginAuthResponse{AuthorizeURL: begin.AuthorizeURL})
}

// ShopifyCallback completes the Shopify flow after the browser returns
func (h *OAuthHandler) ShopifyCallback(c *gin.Context) {
	log := logger.FromGin(c)

	userID, ok := h.verifyState(c, c.Query("state"))
	h.cookies.clear(c, stateCookieName, verifierCookieName)
	if !ok {
		h.redirectError(c, connector.CodeInvalidState)
		return
	}

	if err := h.shopify.CompleteAuth(c.Request.Context(), userID, c.Request.URL.Query()); err != nil {
		log.Warn("Shopify authorization failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		h.redirectError(c, connector.ErrorCode(err))
		return
	}
	h.redirectConnected(c, "shopify")
}

// ConnectPrintify validates a pasted personal access token
func (h *OAuthHandler) ConnectPrintify(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.ConnectPrintifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "personal_access_token is required")
		return
	}

	shop, err := h.printify.Connect(c.Request.Context(), userID, req.PersonalAccessToken)
	if err != nil {
		logger.FromGin(c).Warn("Printify connect failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		code := connector.ErrorCode(err)
		h.Error(c, connectErrorStatus(code), code, "Could not connect Printify account")
		return
	}

	h.Success(c, dto.ConnectionResponse{
		Platform: "printify",
		ShopID:   shop.ShopID,
		ShopName: shop.ShopName,
		Status:   "connected",
	})
}

// verifyState checks the returned state against the signed cookie and
// recovers the initiating user's id from it.
func (h *OAuthHandler) verifyState(c *gin.Context, returnedState string) (uuid.UUID, bool) {
	payload, err := h.cookies.read(c, stateCookieName)
	if err != nil || returnedState == "" {
		return uuid.Nil, false
	}
	userIDStr, state, ok := strings.Cut(payload, "|")
	if !ok || state != returnedState {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (h *OAuthHandler) redirectConnected(c *gin.Context, platform string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/connections?connected="+platform)
}

func (h *OAuthHandler) redirectError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/connections?error="+code)
}

// connectErrorStatus maps connector error codes onto API statuses for the
// non-redirect Printify flow.
func connectErrorStatus(code string) int {
	switch code {
	case connector.CodeMissingParams:
		return http.StatusBadRequest
	case connector.CodeTokenExchangeFailed:
		return http.StatusUnprocessableEntity
	case connector.CodeStorageFailed, connector.CodeUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
