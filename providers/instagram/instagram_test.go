package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	connect "github.com/goliatone/go-social-connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(graphURL string) Config {
	return Config{
		ClientID:     "ig-app",
		ClientSecret: "ig-secret",
		RedirectURL:  "https://example.com/callback",
		GraphURL:     graphURL,
	}
}

func TestNew_FacebookCredentialFallback(t *testing.T) {
	flow, err := New(Config{
		FacebookClientID:     "fb-app",
		FacebookClientSecret: "fb-secret",
		RedirectURL:          "https://example.com/callback",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(flow.AuthCodeURL("s", DefaultScopes()))
	require.NoError(t, err)
	assert.Equal(t, "fb-app", parsed.Query().Get("client_id"))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{RedirectURL: "https://example.com/callback"})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, connect.TextCodeNotConfigured, richErr.TextCode)
}

func TestAuthCodeURL(t *testing.T) {
	cfg := testConfig("")
	cfg.ConfigID = "ig-biz-config"
	flow, err := New(cfg)
	require.NoError(t, err)

	parsed, err := url.Parse(flow.AuthCodeURL("state-ig", nil))
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "ig-app", q.Get("client_id"))
	assert.Equal(t, "state-ig", q.Get("state"))
	assert.Equal(t, "ig-biz-config", q.Get("config_id"))
	assert.Contains(t, q.Get("scope"), "instagram_basic")
}

func TestExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ig-token",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	token, err := flow.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "ig-token", token.AccessToken)
}

func TestExchange_EmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = flow.Exchange(context.Background(), "the-code")
	require.Error(t, err)

	var perr *connect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, connect.ProviderInstagram, perr.Provider)
	assert.Equal(t, "missing_access_token", perr.Code)
}

func TestBuildMetadata(t *testing.T) {
	flow, err := New(testConfig(""))
	require.NoError(t, err)

	token := &connect.TokenResult{AccessToken: "ig-token", TokenType: "bearer"}
	profile := &connect.ResolvedProfile{
		AccountID:       "17840001",
		Username:        "acme_shop",
		PageID:          "page-1",
		PageAccessToken: "page-token",
		BusinessID:      "17840001",
		AccountType:     "business",
	}

	m := flow.BuildMetadata(token, profile).MetadataMap()
	assert.Equal(t, "ig-token", m["access_token"])
	assert.Equal(t, "page-1", m["page_id"])
	assert.Equal(t, "page-token", m["page_access_token"])
	assert.Equal(t, "17840001", m["business_account_id"])
	assert.Equal(t, "acme_shop", m["username"])
	assert.Equal(t, "business", m["account_type"])
}
