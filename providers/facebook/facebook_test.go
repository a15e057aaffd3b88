package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	connect "github.com/goliatone/go-social-connect"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(graphURL string) Config {
	return Config{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		RedirectURL:  "https://example.com/callback",
		GraphURL:     graphURL,
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{ClientID: "app-id"})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, connect.TextCodeNotConfigured, richErr.TextCode)
}

func TestAuthCodeURL(t *testing.T) {
	flow, err := New(testConfig(""))
	require.NoError(t, err)

	raw := flow.AuthCodeURL("state-123", []string{"email", "pages_show_list"})

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "app-id", q.Get("client_id"))
	assert.Equal(t, "https://example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "email,pages_show_list", q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Empty(t, q.Get("config_id"))
}

func TestAuthCodeURL_ConfigID(t *testing.T) {
	cfg := testConfig("")
	cfg.ConfigID = "biz-config"
	flow, err := New(cfg)
	require.NoError(t, err)

	parsed, err := url.Parse(flow.AuthCodeURL("s", DefaultScopes()))
	require.NoError(t, err)
	assert.Equal(t, "biz-config", parsed.Query().Get("config_id"))
}

func TestScopes_Fallbacks(t *testing.T) {
	flow, err := New(testConfig(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultScopes(), flow.Scopes(nil))
	assert.Equal(t, []string{"email"}, flow.Scopes([]string{"email"}))

	cfg := testConfig("")
	cfg.Scopes = []string{"pages_show_list"}
	flow, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"pages_show_list"}, flow.Scopes(nil))
}

func TestExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "app-id", q.Get("client_id"))
		assert.Equal(t, "app-secret", q.Get("client_secret"))
		assert.Equal(t, "the-code", q.Get("code"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-token",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	token, err := flow.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "fb-token", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	require.NotNil(t, token.ExpiresAt())
}

func TestExchange_GraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message":       "Invalid verification code format.",
				"type":          "OAuthException",
				"code":          100,
				"error_subcode": 33,
				"fbtrace_id":    "AbCdEf123",
			},
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = flow.Exchange(context.Background(), "bad-code")
	require.Error(t, err)

	var perr *connect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, connect.ProviderFacebook, perr.Provider)
	assert.Equal(t, "exchange", perr.Operation)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "OAuthException", perr.Code)
	assert.Equal(t, 33, perr.Subcode)
	assert.Equal(t, "AbCdEf123", perr.Trace)
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
	assert.Equal(t, "missing_access_token", perr.Code)
}

func TestIntrospectToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/debug_token", r.URL.Path)
		assert.Equal(t, "fb-token", r.URL.Query().Get("input_token"))
		assert.Equal(t, "app-id|app-secret", r.URL.Query().Get("access_token"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"app_id":   "app-id",
				"is_valid": true,
				"scopes":   []string{"email", "public_profile"},
			},
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	intros, err := flow.IntrospectToken(context.Background(), "fb-token")
	require.NoError(t, err)
	assert.True(t, intros.IsValid)
	assert.Equal(t, []string{"email", "public_profile"}, intros.Scopes)
}

func TestIntrospectToken_WrongApp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"app_id":   "someone-elses-app",
				"is_valid": true,
			},
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = flow.IntrospectToken(context.Background(), "fb-token")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, connect.TextCodeAppMismatch, richErr.TextCode)
}

func TestResolveProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "1001",
			"name":  "Jane Smith",
			"email": "jane@example.com",
		})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	profile, err := flow.ResolveProfile(context.Background(), &connect.TokenResult{AccessToken: "fb-token"})
	require.NoError(t, err)
	assert.Equal(t, "1001", profile.AccountID)
	assert.Equal(t, "Jane Smith", profile.Name)
	assert.Equal(t, "jane@example.com", profile.Email)
}

func TestResolveProfile_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "No ID"})
	}))
	defer server.Close()

	flow, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = flow.ResolveProfile(context.Background(), &connect.TokenResult{AccessToken: "fb-token"})
	assert.ErrorIs(t, err, connect.ErrProfileMissing)
}

func TestBuildMetadata(t *testing.T) {
	flow, err := New(testConfig(""))
	require.NoError(t, err)

	token := &connect.TokenResult{AccessToken: "fb-token", TokenType: "bearer", ExpiresIn: 3600}
	profile := &connect.ResolvedProfile{AccountID: "1001", Name: "Jane Smith", Email: "jane@example.com"}

	meta := flow.BuildMetadata(token, profile)
	m := meta.MetadataMap()
	assert.Equal(t, "fb-token", m["access_token"])
	assert.Equal(t, "1001", m["account_id"])
	assert.Equal(t, "jane@example.com", m["email"])
}
