package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenProvider returning a fixed token.
type staticTokens struct {
	token string
}

func (s staticTokens) Token(_ context.Context) (string, error) {
	return s.token, nil
}

const searchResponseJSON = `{
	"itemSummaries": [
		{
			"title": "RTX 3080 Founders Edition",
			"price": {"value": "350.00", "currency": "CAD"},
			"condition": "Used",
			"itemWebUrl": "https://ebay.example/itm/1",
			"shippingOptions": [{"shippingCost": {"value": "10.00", "currency": "CAD"}}]
		},
		{
			"title": "RTX 3080 no shipping info",
			"price": {"value": "400.00", "currency": "CAD"},
			"condition": "New",
			"itemWebUrl": "https://ebay.example/itm/2"
		},
		{
			"title": "Broken result without price",
			"condition": "Used",
			"itemWebUrl": "https://ebay.example/itm/3"
		}
	]
}`

func TestSearchReferenceListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, searchPath, r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "RTX 3080", q.Get("q"))
		assert.Equal(t, "KEYWORD", q.Get("auto_correct"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, componentsCategoryID, q.Get("category_ids"))
		assert.Equal(t, conditionFilter, q.Get("filter"))

		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_CA", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponseJSON))
	}))
	defer server.Close()

	c := NewClient(server.URL, "EBAY_CA", staticTokens{token: "test-token"})

	listings, err := c.SearchReferenceListings(context.Background(), "RTX 3080")
	require.NoError(t, err)
	require.Len(t, listings, 2)

	// Item price plus first shipping option
	assert.Equal(t, "RTX 3080 Founders Edition", listings[0].Title)
	assert.Equal(t, 360.0, listings[0].Price)
	assert.Equal(t, "Used", listings[0].Condition)
	assert.Equal(t, "https://ebay.example/itm/1", listings[0].URL)

	// Missing shipping defaults to 0
	assert.Equal(t, 400.0, listings[1].Price)
}

func TestSearchReferenceListingsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "EBAY_CA", staticTokens{token: "t"})

	listings, err := c.SearchReferenceListings(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestSearchReferenceListingsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "EBAY_CA", staticTokens{token: "t"})

	_, err := c.SearchReferenceListings(context.Background(), "RTX 3080")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTokenSourceReusesCachedToken(t *testing.T) {
	var exchanges int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
	}))
	defer server.Close()

	ts := NewTokenSource("id", "secret", "scope", server.URL, "cached-token", time.Now().Add(time.Hour), nil)

	token, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Equal(t, 0, exchanges)
}

func TestTokenSourceRefreshesExpiredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Client-credential grant with basic auth
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"token_type":   "Bearer",
			"expires_in":   7200,
		})
	}))
	defer server.Close()

	var persistedToken string
	var persistedExpiry time.Time
	persist := func(token string, expiry time.Time) error {
		persistedToken = token
		persistedExpiry = expiry
		return nil
	}

	ts := NewTokenSource("id", "secret", "scope", server.URL, "stale", time.Now().Add(-time.Minute), persist)

	token, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "fresh-token", persistedToken)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), persistedExpiry, time.Minute)

	// Refreshed token is now cached
	token, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

func TestTokenSourceExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ts := NewTokenSource("id", "bad-secret", "scope", server.URL, "", time.Time{}, nil)

	_, err := ts.Token(context.Background())
	assert.Error(t, err)
}
