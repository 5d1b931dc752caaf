package platform

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

func newTestShopifyClient(serverURL string) *ShopifyClient {
	c := NewShopifyClient(config.ShopifyConfig{
		APIKey:    "shopify-api-key",
		APISecret: "shopify-api-secret",
		Scopes:    "read_orders,read_products",
	})
	if serverURL != "" {
		c.shopBaseURL = func(string) string { return serverURL }
	}
	return c
}

func signShopifyQuery(secret string, query url.Values) string {
	pairs := make([]string, 0, len(query))
	for key, values := range query {
		for _, value := range values {
			pairs = append(pairs, key+"="+value)
		}
	}
	sort.Strings(pairs)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestShopifyBuildAuthorizeURL(t *testing.T) {
	c := newTestShopifyClient("")

	raw := c.BuildAuthorizeURL("acme.myshopify.com", "state-1", "https://app.example.com/cb")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "acme.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "shopify-api-key", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "https://app.example.com/cb", q.Get("redirect_uri"))
}

func TestShopifyValidateCallbackHMAC(t *testing.T) {
	c := newTestShopifyClient("")

	t.Run("accepts correctly signed query", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "auth-code")
		query.Set("shop", "acme.myshopify.com")
		query.Set("state", "state-1")
		query.Set("timestamp", "1700000000")
		query.Set("hmac", signShopifyQuery("shopify-api-secret", query))

		assert.True(t, c.ValidateCallbackHMAC(query))
	})

	t.Run("rejects tampered parameter", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "auth-code")
		query.Set("shop", "acme.myshopify.com")
		query.Set("hmac", signShopifyQuery("shopify-api-secret", query))

		query.Set("shop", "evil.myshopify.com")
		assert.False(t, c.ValidateCallbackHMAC(query))
	})

	t.Run("rejects missing hmac", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "auth-code")
		assert.False(t, c.ValidateCallbackHMAC(query))
	})

	t.Run("signature parameter is excluded like hmac", func(t *testing.T) {
		query := url.Values{}
		query.Set("code", "auth-code")
		query.Set("shop", "acme.myshopify.com")
		sig := signShopifyQuery("shopify-api-secret", query)
		query.Set("signature", "legacy-value")
		query.Set("hmac", sig)

		assert.True(t, c.ValidateCallbackHMAC(query))
	})
}

func TestShopifyExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"access_token":"shpat_abc123","scope":"read_orders"}`))
	}))
	defer server.Close()

	token, err := newTestShopifyClient(server.URL).ExchangeCode(context.Background(), "acme.myshopify.com", "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "shpat_abc123", token.AccessToken)
	assert.Empty(t, token.RefreshToken)
	assert.Nil(t, token.ExpiresAt)
}

func TestShopifyExchangeCodeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestShopifyClient(server.URL).ExchangeCode(context.Background(), "acme.myshopify.com", "bad-code")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestShopifyFetchShop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_abc123", r.Header.Get("X-Shopify-Access-Token"))
		w.Write([]byte(`{"shop":{"name":"Acme Goods","myshopify_domain":"acme.myshopify.com"}}`))
	}))
	defer server.Close()

	info, err := newTestShopifyClient(server.URL).FetchShop(context.Background(), "acme.myshopify.com", "shpat_abc123")

	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", info.ShopID)
	assert.Equal(t, "Acme Goods", info.ShopName)
}

func TestShopifyRegisterWebhooks(t *testing.T) {
	var topics []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/webhooks.json", r.URL.Path)
		var body struct {
			Webhook struct {
				Topic   string `json:"topic"`
				Address string `json:"address"`
			} `json:"webhook"`
		}
		require.NoError(t, jsonDecode(r, &body))
		topics = append(topics, body.Webhook.Topic)
		assert.Equal(t, "https://app.example.com/webhooks/shopify", body.Webhook.Address)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestShopifyClient(server.URL).RegisterWebhooks(
		context.Background(), "acme.myshopify.com", "shpat_abc123", "https://app.example.com/webhooks/shopify")

	require.NoError(t, err)
	assert.Contains(t, topics, "orders/create")
	assert.Contains(t, topics, "app/uninstalled")
}
