package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	connect "github.com/goliatone/go-social-connect"
	"github.com/goliatone/go-social-connect/graph"
)

const defaultAuthURL = "https://www.facebook.com/v23.0/dialog/oauth"

// Config holds Facebook app configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// ConfigID selects a Facebook Login for Business configuration.
	ConfigID string
	Scopes   []string

	// AuthURL and GraphURL override provider endpoints, mainly for tests.
	AuthURL  string
	GraphURL string

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

// DefaultScopes returns the fallback Facebook permission set.
func DefaultScopes() []string {
	return []string{"public_profile", "email", "pages_show_list"}
}

// Flow implements the Facebook connection flow: code exchange, token
// introspection, and basic profile fetch.
type Flow struct {
	config       Config
	client       *graph.Client
	introspector *graph.Introspector
}

// New creates the Facebook flow, failing when app credentials are absent.
func New(cfg Config) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, connect.WrapProviderError(connect.ErrNotConfigured, connect.ProviderFacebook, "configure", err)
	}

	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}

	opts := []graph.ClientOption{}
	if cfg.GraphURL != "" {
		opts = append(opts, graph.WithBaseURL(cfg.GraphURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, graph.WithHTTPClient(cfg.HTTPClient))
	}
	client := graph.NewClient(opts...)

	return &Flow{
		config:       cfg,
		client:       client,
		introspector: graph.NewIntrospector(client, cfg.ClientID, cfg.ClientSecret),
	}, nil
}

// Name implements connect.ProviderFlow.
func (f *Flow) Name() string {
	return connect.ProviderFacebook
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
	if f.config.ConfigID != "" {
		params.Set("config_id", f.config.ConfigID)
	}

	return f.config.AuthURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange implements connect.ProviderFlow.
func (f *Flow) Exchange(ctx context.Context, code string) (*connect.TokenResult, error) {
	params := url.Values{}
	params.Set("client_id", f.config.ClientID)
	params.Set("client_secret", f.config.ClientSecret)
	params.Set("redirect_uri", f.config.RedirectURL)
	params.Set("code", code)

	var resp tokenResponse
	if err := f.client.Get(ctx, "oauth/access_token", params, &resp); err != nil {
		return nil, providerError("exchange", err)
	}
	if resp.AccessToken == "" {
		return nil, &connect.ProviderError{
			Provider:    connect.ProviderFacebook,
			Operation:   "exchange",
			Code:        "missing_access_token",
			Description: "token response carried no access token",
		}
	}

	return &connect.TokenResult{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

// IntrospectToken implements connect.TokenIntrospector: the token must be
// live and owned by this app.
func (f *Flow) IntrospectToken(ctx context.Context, accessToken string) (*connect.Introspection, error) {
	intros, err := f.introspector.IntrospectToken(ctx, accessToken)
	if err != nil {
		return nil, providerError("introspect", err)
	}
	if err := f.introspector.VerifyOwnership(intros); err != nil {
		return nil, err
	}
	return intros, nil
}

type profileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ResolveProfile implements connect.ProfileResolver with the basic
// /me profile fetch.
func (f *Flow) ResolveProfile(ctx context.Context, token *connect.TokenResult) (*connect.ResolvedProfile, error) {
	params := url.Values{}
	params.Set("fields", "id,name,email")
	params.Set("access_token", token.AccessToken)

	var resp profileResponse
	if err := f.client.Get(ctx, "me", params, &resp); err != nil {
		return nil, connect.WrapProviderError(connect.ErrGraphAPI, connect.ProviderFacebook, "profile", providerError("profile", err))
	}
	if resp.ID == "" {
		return nil, connect.ErrProfileMissing
	}

	return &connect.ResolvedProfile{
		AccountID: resp.ID,
		Name:      resp.Name,
		Email:     resp.Email,
	}, nil
}

// BuildMetadata implements connect.MetadataBuilder.
func (f *Flow) BuildMetadata(token *connect.TokenResult, profile *connect.ResolvedProfile) connect.ConnectionMetadata {
	meta := connect.FacebookMetadata{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt(),
	}
	if profile != nil {
		meta.AccountID = profile.AccountID
		meta.Name = profile.Name
		meta.Email = profile.Email
	}
	return meta
}

func providerError(operation string, err error) error {
	var reqErr *graph.RequestError
	if errors.As(err, &reqErr) {
		perr := &connect.ProviderError{
			Provider:    connect.ProviderFacebook,
			Operation:   operation,
			Status:      reqErr.Status,
			Description: reqErr.Message,
			Err:         reqErr,
		}
		if reqErr.API != nil {
			perr.Code = reqErr.API.Type
			perr.Subcode = reqErr.API.ErrorSubcode
			perr.Trace = reqErr.API.TraceID
		}
		return perr
	}
	return &connect.ProviderError{
		Provider:  connect.ProviderFacebook,
		Operation: operation,
		Err:       err,
	}
}
