package tiktok

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
	defaultAuthURL  = "https://www.tiktok.com/v2/auth/authorize/"
	defaultTokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
)

// Config holds TikTok app configuration. TikTok calls the client id a
// "client key" on the wire.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string

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

// DefaultScopes returns the fallback TikTok permission set.
func DefaultScopes() []string {
	return []string{"user.info.basic", "video.publish", "video.upload"}
}

// Flow implements the TikTok connection flow against the TikTok Open API:
// code exchange plus refresh-token support.
type Flow struct {
	config     Config
	httpClient *http.Client
}

// New creates the TikTok flow, failing when app credentials are absent.
func New(cfg Config) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, connect.WrapProviderError(connect.ErrNotConfigured, connect.ProviderTikTok, "configure", err)
	}

	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Flow{
		config:     cfg,
		httpClient: client,
	}, nil
}

// Name implements connect.ProviderFlow.
func (f *Flow) Name() string {
	return connect.ProviderTikTok
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
	params.Set("client_key", f.config.ClientID)
	params.Set("redirect_uri", f.config.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(scopes, ","))
	params.Set("state", state)

	return f.config.AuthURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	LogID            string `json:"log_id"`
}

// Exchange implements connect.ProviderFlow.
func (f *Flow) Exchange(ctx context.Context, code string) (*connect.TokenResult, error) {
	data := url.Values{}
	data.Set("client_key", f.config.ClientID)
	data.Set("client_secret", f.config.ClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", f.config.RedirectURL)

	return f.postToken(ctx, "exchange", data)
}

// RefreshToken implements connect.TokenRefresher using the stored
// refresh token.
func (f *Flow) RefreshToken(ctx context.Context, refreshToken string) (*connect.TokenResult, error) {
	data := url.Values{}
	data.Set("client_key", f.config.ClientID)
	data.Set("client_secret", f.config.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return f.postToken(ctx, "refresh", data)
}

// BuildMetadata implements connect.MetadataBuilder.
func (f *Flow) BuildMetadata(token *connect.TokenResult, _ *connect.ResolvedProfile) connect.ConnectionMetadata {
	meta := connect.TikTokMetadata{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.ExpiresAt(),
	}
	if id, ok := token.Raw["open_id"].(string); ok {
		meta.OpenID = id
	}
	return meta
}

func (f *Flow) postToken(ctx context.Context, operation string, data url.Values) (*connect.TokenResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(operation, resp.StatusCode, "", "", err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, providerError(operation, resp.StatusCode, "invalid_response", "failed to decode token response", err)
	}

	if resp.StatusCode != http.StatusOK || token.Error != "" {
		perr := providerError(operation, resp.StatusCode, token.Error, token.ErrorDescription, nil)
		perr.Trace = token.LogID
		return nil, perr
	}
	if token.AccessToken == "" {
		return nil, providerError(operation, resp.StatusCode, "missing_access_token", "token response carried no access token", nil)
	}

	result := &connect.TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
		Scopes:       splitScopes(token.Scope),
	}
	if token.OpenID != "" {
		result.Raw = map[string]any{"open_id": token.OpenID}
	}
	return result, nil
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}

	parts := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func providerError(operation string, status int, code, description string, err error) *connect.ProviderError {
	return &connect.ProviderError{
		Provider:    connect.ProviderTikTok,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
