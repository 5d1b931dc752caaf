package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

const (
	etsyAuthorizeURL = "https://www.etsy.com/oauth/connect"
	etsyAPIBaseURL   = "https://api.etsy.com"
)

// EtsyClient talks to the Etsy v3 API. Etsy uses authorization-code OAuth
// with PKCE and short-lived access tokens that must be refreshed.
type EtsyClient struct {
	clientID    string
	scopes      string
	redirectURL string

	authorizeURL string
	apiBaseURL   string
	httpClient   *http.Client
}

// NewEtsyClient creates an Etsy API client
func NewEtsyClient(cfg config.EtsyConfig, redirectURL string) *EtsyClient {
	apiBaseURL := etsyAPIBaseURL
	if cfg.APIBaseURL != "" {
		apiBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	}
	return &EtsyClient{
		clientID:     cfg.ClientID,
		scopes:       cfg.Scopes,
		redirectURL:  redirectURL,
		authorizeURL: etsyAuthorizeURL,
		apiBaseURL:   apiBaseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
}

// BuildAuthorizeURL builds the consent-screen URL for the given state and
// S256 code challenge.
func (c *EtsyClient) BuildAuthorizeURL(state, codeChallenge string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("scope", c.scopes)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	return c.authorizeURL + "?" + q.Encode()
}

type etsyTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExchangeCode redeems an authorization code with its PKCE verifier
func (c *EtsyClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.clientID)
	form.Set("redirect_uri", c.redirectURL)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)

	return c.tokenRequest(ctx, form)
}

// RefreshToken exchanges a refresh token for a new token pair. A 400 or 401
// means the grant is gone and the user must re-authorize.
func (c *EtsyClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.clientID)
	form.Set("refresh_token", refreshToken)

	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		var se *statusError
		if asStatusError(err, &se) && (se.status == http.StatusBadRequest || se.status == http.StatusUnauthorized) {
			return nil, ErrRefreshRefused
		}
		return nil, err
	}
	return token, nil
}

func (c *EtsyClient) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/v3/public/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body etsyTokenResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrInvalidCredential)
	}

	token := &TokenResponse{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if body.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
		token.ExpiresAt = &expiresAt
	}
	return token, nil
}

// FetchShop resolves the authenticated user's shop identity. The user id is
// the numeric prefix of the access token.
func (c *EtsyClient) FetchShop(ctx context.Context, accessToken string) (*ShopInfo, error) {
	var me struct {
		UserID int64 `json:"user_id"`
		ShopID int64 `json:"shop_id"`
	}
	if err := c.get(ctx, "/v3/application/users/me", accessToken, &me); err != nil {
		return nil, err
	}
	if me.ShopID == 0 {
		return nil, fmt.Errorf("%w: authenticated user has no shop", ErrInvalidCredential)
	}

	var shop struct {
		ShopID   int64  `json:"shop_id"`
		ShopName string `json:"shop_name"`
	}
	if err := c.get(ctx, "/v3/application/shops/"+strconv.FormatInt(me.ShopID, 10), accessToken, &shop); err != nil {
		return nil, err
	}

	return &ShopInfo{
		ShopID:   strconv.FormatInt(me.ShopID, 10),
		ShopName: shop.ShopName,
	}, nil
}

// RegisterWebhooks subscribes the callback URL to receipt and listing events
func (c *EtsyClient) RegisterWebhooks(ctx context.Context, accessToken, shopID, callbackURL string) error {
	payload, err := json.Marshal(map[string]any{
		"callback_url": callbackURL,
		"events":       []string{"receipt_created", "receipt_updated", "listing_updated"},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/v3/application/shops/"+shopID+"/webhooks", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, accessToken)

	return c.do(req, nil)
}

func (c *EtsyClient) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req, accessToken)
	return c.do(req, out)
}

func (c *EtsyClient) authorize(req *http.Request, accessToken string) {
	req.Header.Set("x-api-key", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)
}

func (c *EtsyClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &statusError{status: resp.StatusCode, wrapped: ErrInvalidCredential}
		}
		return &statusError{status: resp.StatusCode, wrapped: ErrRequestFailed}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRequestFailed, err)
	}
	return nil
}
