package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

func jsonDecode(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func newTestPrintifyClient(serverURL string) *PrintifyClient {
	return NewPrintifyClient(config.PrintifyConfig{APIBaseURL: serverURL})
}

func TestPrintifyListShops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shops.json", r.URL.Path)
		assert.Equal(t, "Bearer pat-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":123456,"title":"My POD Store","sales_channel":"custom"}]`))
	}))
	defer server.Close()

	shops, err := newTestPrintifyClient(server.URL).ListShops(context.Background(), "pat-token")

	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, "123456", shops[0].ShopID)
	assert.Equal(t, "My POD Store", shops[0].ShopName)
}

func TestPrintifyListShopsRejectsBadToken(t *testing.T) {
	// Printify returns various non-2xx codes for unusable tokens; every one
	// of them means the credential is invalid.
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestPrintifyClient(server.URL).ListShops(context.Background(), "bad-token")
		assert.ErrorIs(t, err, ErrInvalidCredential, "status %d", status)
		server.Close()
	}
}

func TestPrintifyRegisterWebhooks(t *testing.T) {
	var topics []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shops/123456/webhooks.json", r.URL.Path)
		var body struct {
			Topic string `json:"topic"`
			URL   string `json:"url"`
		}
		require.NoError(t, jsonDecode(r, &body))
		topics = append(topics, body.Topic)
		assert.Contains(t, body.URL, "uid=")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestPrintifyClient(server.URL).RegisterWebhooks(
		context.Background(), "pat-token", "123456",
		"https://app.example.com/webhooks/printify?uid=u1&secret=s1")

	require.NoError(t, err)
	assert.Contains(t, topics, "order:created")
	assert.Contains(t, topics, "order:updated")
}

func TestPrintifyRegisterWebhooksFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	err := newTestPrintifyClient(server.URL).RegisterWebhooks(
		context.Background(), "pat-token", "123456", "https://app.example.com/webhooks/printify")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
