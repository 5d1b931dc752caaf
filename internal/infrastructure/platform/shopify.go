package platform

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// ShopifyClient talks to the Shopify Admin API. Shopify issues permanent
// access tokens per shop; its OAuth callback is authenticated by an HMAC
// over the query string rather than PKCE. API endpoints live under the
// merchant's own shop domain.
type ShopifyClient struct {
	apiKey    string
	apiSecret string
	scopes    string

	// shopBaseURL maps a shop domain to its admin origin; replaced in tests
	shopBaseURL func(shopDomain string) string
	httpClient  *http.Client
}

// NewShopifyClient creates a Shopify API client
func NewShopifyClient(cfg config.ShopifyConfig) *ShopifyClient {
	shopBaseURL := func(shopDomain string) string { return "https://" + shopDomain }
	if cfg.APIBaseURL != "" {
		base := strings.TrimSuffix(cfg.APIBaseURL, "/")
		shopBaseURL = func(string) string { return base }
	}
	return &ShopifyClient{
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		scopes:      cfg.Scopes,
		shopBaseURL: shopBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
}

// BuildAuthorizeURL builds the install/consent URL on the merchant's shop
func (c *ShopifyClient) BuildAuthorizeURL(shopDomain, state, redirectURL string) string {
	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", c.scopes)
	q.Set("redirect_uri", redirectURL)
	q.Set("state", state)
	return c.shopBaseURL(shopDomain) + "/admin/oauth/authorize?" + q.Encode()
}

// ValidateCallbackHMAC verifies the hmac parameter Shopify appends to its
// OAuth callback. The message is every other parameter as key=value pairs,
// sorted and joined with &; the digest is hex-encoded SHA-256 HMAC keyed by
// the app's API secret.
func (c *ShopifyClient) ValidateCallbackHMAC(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	pairs := make([]string, 0, len(query))
	for key, values := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		for _, value := range values {
			pairs = append(pairs, key+"="+value)
		}
	}
	sort.Strings(pairs)
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}

// ExchangeCode redeems an authorization code for a permanent access token
func (c *ShopifyClient) ExchangeCode(ctx context.Context, shopDomain, code string) (*TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.shopBaseURL(shopDomain)+"/admin/oauth/access_token", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrInvalidCredential)
	}

	// Shopify tokens have no expiry and no refresh token.
	return &TokenResponse{AccessToken: body.AccessToken}, nil
}

// FetchShop fetches the shop identity for display
func (c *ShopifyClient) FetchShop(ctx context.Context, shopDomain, accessToken string) (*ShopInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.shopBaseURL(shopDomain)+"/admin/api/2024-01/shop.json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	var body struct {
		Shop struct {
			Name            string `json:"name"`
			MyshopifyDomain string `json:"myshopify_domain"`
		} `json:"shop"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	info := &ShopInfo{ShopID: shopDomain, ShopName: body.Shop.Name}
	if body.Shop.MyshopifyDomain != "" {
		info.ShopID = body.Shop.MyshopifyDomain
	}
	return info, nil
}

// RegisterWebhooks subscribes the callback URL to the topics the sync
// pipeline consumes, including app/uninstalled for disconnect handling.
func (c *ShopifyClient) RegisterWebhooks(ctx context.Context, shopDomain, accessToken, callbackURL string) error {
	topics := []string{"orders/create", "orders/updated", "products/update", "app/uninstalled"}

	for _, topic := range topics {
		payload, err := json.Marshal(map[string]any{
			"webhook": map[string]string{
				"topic":   topic,
				"address": callbackURL,
				"format":  "json",
			},
		})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.shopBaseURL(shopDomain)+"/admin/api/2024-01/webhooks.json", strings.NewReader(string(payload)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", accessToken)

		if err := c.do(req, nil); err != nil {
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}
	return nil
}

func (c *ShopifyClient) do(req *http.Request, out any) error {
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
