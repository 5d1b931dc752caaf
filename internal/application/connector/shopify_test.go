package connector

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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
)

const shopifyTestSecret = "shopify-api-secret"

func newShopifyConnectorForTest(serverURL string, accounts *mockAccountRepository, queue *fakeQueue) *ShopifyConnector {
	client := platform.NewShopifyClient(config.ShopifyConfig{
		APIKey:     "shopify-api-key",
		APISecret:  shopifyTestSecret,
		Scopes:     "read_orders",
		APIBaseURL: serverURL,
	})

	c := NewShopifyConnector(client, accounts, fakeVault{}, queue,
		"https://app.example.com/api/v1/oauth/shopify/callback",
		"https://app.example.com/webhooks/shopify", zap.NewNop())
	c.spawn = syncSpawn
	return c
}

func signedCallbackQuery(values map[string]string) url.Values {
	query := url.Values{}
	for k, v := range values {
		query.Set(k, v)
	}
	pairs := make([]string, 0, len(query))
	for key, vals := range query {
		for _, value := range vals {
			pairs = append(pairs, key+"="+value)
		}
	}
	sort.Strings(pairs)
	mac := hmac.New(sha256.New, []byte(shopifyTestSecret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	query.Set("hmac", hex.EncodeToString(mac.Sum(nil)))
	return query
}

func shopifyAPIStub(webhookTopics *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/oauth/access_token":
			w.Write([]byte(`{"access_token":"shpat_permanent"}`))
		case "/admin/api/2024-01/shop.json":
			w.Write([]byte(`{"shop":{"name":"Acme Goods","myshopify_domain":"acme.myshopify.com"}}`))
		case "/admin/api/2024-01/webhooks.json":
			if webhookTopics != nil {
				var body struct {
					Webhook struct {
						Topic string `json:"topic"`
					} `json:"webhook"`
				}
				_ = jsonDecodeBody(r, &body)
				*webhookTopics = append(*webhookTopics, body.Webhook.Topic)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNormalizeShopDomain(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"acme.myshopify.com", "acme.myshopify.com", false},
		{"acme", "acme.myshopify.com", false},
		{"https://acme.myshopify.com/", "acme.myshopify.com", false},
		{"ACME.MYSHOPIFY.COM", "acme.myshopify.com", false},
		{"", "", true},
		{"evil.example.com", "", true},
		{"acme.myshopify.com@evil.example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := normalizeShopDomain(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestShopifyBeginAuth(t *testing.T) {
	c := newShopifyConnectorForTest("", new(mockAccountRepository), new(fakeQueue))

	begin, err := c.BeginAuth(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, begin.State)
	assert.Empty(t, begin.CodeVerifier)

	u, err := url.Parse(begin.AuthorizeURL)
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", u.Host)
	assert.Equal(t, begin.State, u.Query().Get("state"))
}

func TestShopifyCompleteAuth(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		var topics []string
		server := httptest.NewServer(shopifyAPIStub(&topics))
		defer server.Close()

		accounts := new(mockAccountRepository)
		queue := new(fakeQueue)
		c := newShopifyConnectorForTest(server.URL, accounts, queue)
		userID := uuid.New()

		accounts.On("Upsert", mock.Anything, mock.MatchedBy(func(acct *account.ConnectedAccount) bool {
			return acct.UserID == userID &&
				acct.Platform == account.PlatformShopify &&
				acct.ShopID == "acme.myshopify.com" &&
				acct.AccessToken == "enc:shpat_permanent" &&
				acct.RefreshToken == "" &&
				acct.TokenExpiresAt == nil
		})).Return(nil)
		queue.On("EnqueueInitial", mock.Anything, userID, account.PlatformShopify).Return(nil)

		query := signedCallbackQuery(map[string]string{
			"code":      "auth-code",
			"shop":      "acme.myshopify.com",
			"state":     "state-1",
			"timestamp": "1700000000",
		})

		require.NoError(t, c.CompleteAuth(context.Background(), userID, query))
		accounts.AssertExpectations(t)
		queue.AssertExpectations(t)
		assert.Contains(t, topics, "app/uninstalled")
	})

	t.Run("tampered query rejected before any API call", func(t *testing.T) {
		c := newShopifyConnectorForTest("", new(mockAccountRepository), new(fakeQueue))

		query := signedCallbackQuery(map[string]string{
			"code": "auth-code",
			"shop": "acme.myshopify.com",
		})
		query.Set("shop", "evil.myshopify.com")

		err := c.CompleteAuth(context.Background(), uuid.New(), query)
		assert.ErrorIs(t, err, ErrInvalidHMAC)
		assert.Equal(t, CodeInvalidHMAC, ErrorCode(err))
	})

	t.Run("signed but incomplete query", func(t *testing.T) {
		c := newShopifyConnectorForTest("", new(mockAccountRepository), new(fakeQueue))

		query := signedCallbackQuery(map[string]string{"shop": "acme.myshopify.com"})

		err := c.CompleteAuth(context.Background(), uuid.New(), query)
		assert.ErrorIs(t, err, ErrMissingParams)
	})

	t.Run("exchange failure maps to token_exchange_failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := newShopifyConnectorForTest(server.URL, new(mockAccountRepository), new(fakeQueue))

		query := signedCallbackQuery(map[string]string{
			"code": "bad-code",
			"shop": "acme.myshopify.com",
		})

		err := c.CompleteAuth(context.Background(), uuid.New(), query)
		require.Error(t, err)
		assert.Equal(t, CodeTokenExchangeFailed, ErrorCode(err))
	})
}
