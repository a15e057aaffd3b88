package instagram

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	connect "github.com/goliatone/go-social-connect"
	"github.com/goliatone/go-social-connect/graph"
)

const defaultAuthURL = "https://www.facebook.com/v23.0/dialog/oauth"

// Config holds Instagram app configuration. Instagram business accounts
// are connected through Facebook Login for Business, so the flow runs on
// the Facebook Graph API; when the Instagram-specific credentials are
// empty the shared Facebook app credentials are used instead.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	ConfigID     string
	Scopes       []string

	// FacebookClientID and FacebookClientSecret are the shared
	// Facebook-family fallback credentials.
	FacebookClientID     string
	FacebookClientSecret string

	AuthURL  string
	GraphURL string

	HTTPClient *http.Client
}

func (c Config) resolved() Config {
	if c.ClientID == "" {
		c.ClientID = c.FacebookClientID
	}
	if c.ClientSecret == "" {
		c.ClientSecret = c.FacebookClientSecret
	}
	if c.AuthURL == "" {
		c.AuthURL = defaultAuthURL
	}
	return c
}

// Validate reports whether the config can produce a working flow.
func (c Config) Validate() error {
	r := c.resolved()
	return validation.ValidateStruct(&r,
		validation.Field(&r.ClientID, validation.Required),
		validation.Field(&r.ClientSecret, validation.Required),
		validation.Field(&r.RedirectURL, validation.Required),
	)
}

// DefaultScopes returns the fallback Instagram permission set.
func DefaultScopes() []string {
	return []string{"pages_show_list", "instagram_basic", "instagram_content_publish", "business_management"}
}

// Flow implements the Instagram connection flow: Facebook-family code
// exchange and introspection, then the page traversal that locates the
// business account behind the personal login.
type Flow struct {
	config       Config
	client       *graph.Client
	introspector *graph.Introspector
	resolver     *Resolver
}

// New creates the Instagram flow, failing when neither Instagram nor
// shared Facebook credentials are configured.
func New(cfg Config, opts ...FlowOption) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, connect.WrapProviderError(connect.ErrNotConfigured, connect.ProviderInstagram, "configure", err)
	}
	cfg = cfg.resolved()

	clientOpts := []graph.ClientOption{}
	if cfg.GraphURL != "" {
		clientOpts = append(clientOpts, graph.WithBaseURL(cfg.GraphURL))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, graph.WithHTTPClient(cfg.HTTPClient))
	}
	client := graph.NewClient(clientOpts...)

	f := &Flow{
		config:       cfg,
		client:       client,
		introspector: graph.NewIntrospector(client, cfg.ClientID, cfg.ClientSecret),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.resolver == nil {
		f.resolver = NewResolver(client)
	}

	return f, nil
}

// FlowOption configures the flow.
type FlowOption func(*Flow)

// WithResolver sets a custom business account resolver.
func WithResolver(r *Resolver) FlowOption {
	return func(f *Flow) {
		f.resolver = r
	}
}

// Name implements connect.ProviderFlow.
func (f *Flow) Name() string {
	return connect.ProviderInstagram
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
		return nil, wireError("exchange", err)
	}
	if resp.AccessToken == "" {
		return nil, &connect.ProviderError{
			Provider:    connect.ProviderInstagram,
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

// IntrospectToken implements connect.TokenIntrospector.
func (f *Flow) IntrospectToken(ctx context.Context, accessToken string) (*connect.Introspection, error) {
	intros, err := f.introspector.IntrospectToken(ctx, accessToken)
	if err != nil {
		return nil, wireError("introspect", err)
	}
	if err := f.introspector.VerifyOwnership(intros); err != nil {
		return nil, err
	}
	return intros, nil
}

// ResolveProfile implements connect.ProfileResolver via the page traversal.
func (f *Flow) ResolveProfile(ctx context.Context, token *connect.TokenResult) (*connect.ResolvedProfile, error) {
	return f.resolver.Resolve(ctx, token)
}

// BuildMetadata implements connect.MetadataBuilder.
func (f *Flow) BuildMetadata(token *connect.TokenResult, profile *connect.ResolvedProfile) connect.ConnectionMetadata {
	meta := connect.InstagramMetadata{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt(),
	}
	if profile != nil {
		meta.AccountID = profile.AccountID
		meta.Username = profile.Username
		meta.PageID = profile.PageID
		meta.PageAccessToken = profile.PageAccessToken
		meta.BusinessID = profile.BusinessID
		meta.AccountType = profile.AccountType
	}
	return meta
}
