package threads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	connect "github.com/goliatone/go-social-connect"
)

const (
	defaultAuthURL  = "https://threads.net/oauth/authorize"
	defaultGraphURL = "https://graph.threads.net"
)

// Config holds Threads app configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL  string
	GraphURL string

	// LongLivedExchange upgrades the short-lived callback token to a
	// ~60 day token before persisting. On by default.
	LongLivedExchange *bool

	HTTPClient *http.Client
}

// Validate reports whether the config can produce a working flow.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.RedirectURL, validation.Required),
	)
}

// DefaultScopes returns the fallback Threads permission set.
func DefaultScopes() []string {
	return []string{"threads_basic", "threads_content_publish"}
}

// Flow implements the Threads connection flow: code exchange, long-lived
// token upgrade, refresh, and profile fetch.
type Flow struct {
	config     Config
	httpClient *http.Client
	longLived  bool
}

// New creates the Threads flow, failing when app credentials are absent.
func New(cfg Config) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, connect.WrapProviderError(connect.ErrNotConfigured, connect.ProviderThreads, "configure", err)
	}

	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	longLived := true
	if cfg.LongLivedExchange != nil {
		longLived = *cfg.LongLivedExchange
	}

	return &Flow{
		config:     cfg,
		httpClient: client,
		longLived:  longLived,
	}, nil
}

// Name implements connect.ProviderFlow.
func (f *Flow) Name() string {
	return connect.ProviderThreads
}

// Scopes implements connect.ProviderFlow.
func (f *Flow) Scopes(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	if len(f.config.Scopes) > 0 {
		return f.config.Scopes
	}
	return DefaultScopes()
}

// AuthCodeURL implements connect.ProviderFlow.
func (f *Flow) AuthCodeURL(state string, scopes []string) string {
	params := url.Values{}
	params.Set("client_id", f.config.ClientID)
	params.Set("redirect_uri", f.config.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(scopes, ","))
	params.Set("state", state)

	return f.config.AuthURL + "?" + params.Encode()
}

type shortTokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
}

type longTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange implements connect.ProviderFlow. The short-lived token from
// the code exchange is upgraded to a long-lived one unless disabled.
func (f *Flow) Exchange(ctx context.Context, code string) (*connect.TokenResult, error) {
	data := url.Values{}
	data.Set("client_id", f.config.ClientID)
	data.Set("client_secret", f.config.ClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", f.config.RedirectURL)

	body, status, err := f.post(ctx, "/oauth/access_token", data)
	if err != nil {
		return nil, providerError("exchange", status, "", "", err)
	}

	var short shortTokenResponse
	if jsonErr := json.Unmarshal(body, &short); jsonErr != nil {
		return nil, providerError("exchange", status, "invalid_response", "failed to decode token response", jsonErr)
	}
	if status != http.StatusOK || short.AccessToken == "" {
		return nil, wireError("exchange", status, body)
	}

	result := &connect.TokenResult{
		AccessToken: short.AccessToken,
		TokenType:   "bearer",
	}
	if short.UserID != 0 {
		result.Raw = map[string]any{"user_id": short.UserID}
	}

	if !f.longLived {
		return result, nil
	}

	long, err := f.exchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}
	long.Raw = result.Raw
	return long, nil
}

// exchangeLongLived trades a short-lived token for a ~60 day one.
func (f *Flow) exchangeLongLived(ctx context.Context, shortToken string) (*connect.TokenResult, error) {
	params := url.Values{}
	params.Set("grant_type", "th_exchange_token")
	params.Set("client_secret", f.config.ClientSecret)
	params.Set("access_token", shortToken)

	return f.getToken(ctx, "long_lived_exchange", "/access_token", params)
}

// RefreshToken implements connect.TokenRefresher. Threads refreshes the
// long-lived access token itself; there is no separate refresh token.
func (f *Flow) RefreshToken(ctx context.Context, accessToken string) (*connect.TokenResult, error) {
	params := url.Values{}
	params.Set("grant_type", "th_refresh_token")
	params.Set("access_token", accessToken)

	return f.getToken(ctx, "refresh", "/refresh_access_token", params)
}

type profileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ResolveProfile implements connect.ProfileResolver with the Threads
// profile fetch.
func (f *Flow) ResolveProfile(ctx context.Context, token *connect.TokenResult) (*connect.ResolvedProfile, error) {
	params := url.Values{}
	params.Set("fields", "id,username")
	params.Set("access_token", token.AccessToken)

	endpoint := f.config.GraphURL + "/v1.0/me?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError("profile", resp.StatusCode, "", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wireError("profile", resp.StatusCode, body)
	}

	var profile profileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, providerError("profile", resp.StatusCode, "invalid_response", "failed to decode profile response", err)
	}
	if profile.ID == "" {
		return nil, connect.ErrProfileMissing
	}

	return &connect.ResolvedProfile{
		AccountID: profile.ID,
		Username:  profile.Username,
	}, nil
}

// BuildMetadata implements connect.MetadataBuilder.
func (f *Flow) BuildMetadata(token *connect.TokenResult, profile *connect.ResolvedProfile) connect.ConnectionMetadata {
	meta := connect.ThreadsMetadata{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt(),
	}
	if profile != nil {
		meta.AccountID = profile.AccountID
		meta.Username = profile.Username
	}
	return meta
}

func (f *Flow) post(ctx context.Context, path string, data url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.GraphURL+path, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (f *Flow) getToken(ctx context.Context, operation, path string, params url.Values) (*connect.TokenResult, error) {
	endpoint := f.config.GraphURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(operation, resp.StatusCode, "", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wireError(operation, resp.StatusCode, body)
	}

	var token longTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, providerError(operation, resp.StatusCode, "invalid_response", "failed to decode token response", err)
	}
	if token.AccessToken == "" {
		return nil, providerError(operation, resp.StatusCode, "missing_access_token", "token response carried no access token", nil)
	}

	return &connect.TokenResult{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	}, nil
}

type metaErrorBody struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		TraceID      string `json:"fbtrace_id"`
	} `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func wireError(operation string, status int, body []byte) *connect.ProviderError {
	var parsed metaErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Message != "" {
			perr := providerError(operation, status, parsed.Error.Type, parsed.Error.Message, nil)
			perr.Subcode = parsed.Error.ErrorSubcode
			perr.Trace = parsed.Error.TraceID
			return perr
		}
		if parsed.ErrorMessage != "" {
			return providerError(operation, status, "", parsed.ErrorMessage, nil)
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "threads request failed"
	}
	return providerError(operation, status, "", msg, nil)
}

func providerError(operation string, status int, code, description string, err error) *connect.ProviderError {
	return &connect.ProviderError{
		Provider:    connect.ProviderThreads,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
