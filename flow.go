package connect

import (
	"context"
	"time"
)

// ProviderFlow is the per-provider surface the orchestrator composes.
// Every provider can build an authorization URL and exchange a code;
// everything else is an optional capability detected at runtime
// (TokenIntrospector, ProfileResolver, TokenRefresher, MetadataBuilder).
type ProviderFlow interface {
	// Name returns the provider identifier (e.g. "facebook", "tiktok").
	Name() string

	// Scopes resolves the effective scope set: explicit request first,
	// then configured defaults, then the provider's hardcoded fallback.
	Scopes(requested []string) []string

	// AuthCodeURL returns the provider authorization URL with the state
	// embedded. All parameters are percent-encoded.
	AuthCodeURL(state string, scopes []string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (*TokenResult, error)
}

// TokenIntrospector validates a token's liveness and owning application.
// Implemented by the Meta-family flows.
type TokenIntrospector interface {
	IntrospectToken(ctx context.Context, accessToken string) (*Introspection, error)
}

// ProfileResolver resolves the provider account behind an access token.
// For Instagram this is the multi-hop page traversal; for Facebook and
// Threads it is a single profile fetch.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, token *TokenResult) (*ResolvedProfile, error)
}

// TokenRefresher exchanges an expired token for a fresh one. Implemented
// by TikTok and Threads. Expiry scheduling is a caller concern.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, token string) (*TokenResult, error)
}

// MetadataBuilder shapes the persisted connection metadata for a provider.
type MetadataBuilder interface {
	BuildMetadata(token *TokenResult, profile *ResolvedProfile) ConnectionMetadata
}

// TokenResult is the provider-shaped token response normalized to a
// common transient shape at the orchestrator boundary.
type TokenResult struct {
	AccessToken    string
	RefreshToken   string
	TokenType      string
	ExpiresIn      int64
	Scopes         []string
	GranularScopes []GranularScope
	// Raw keeps provider-specific extras from the token response
	// (e.g. TikTok's open_id) without widening the common shape.
	Raw map[string]any
}

// ExpiresAt converts the relative expiry into a timestamp, or nil when
// the provider reported no expiry.
func (t *TokenResult) ExpiresAt() *time.Time {
	if t == nil || t.ExpiresIn <= 0 {
		return nil
	}
	at := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// Introspection is the result of a Meta debug_token call.
type Introspection struct {
	AppID          string
	UserID         string
	IsValid        bool
	Scopes         []string
	GranularScopes []GranularScope
	ExpiresAt      int64
}

// ResolvedProfile is the provider account a completed flow discovered.
// Page fields are only set by the Instagram traversal.
type ResolvedProfile struct {
	AccountID       string
	Username        string
	Name            string
	Email           string
	PageID          string
	PageAccessToken string
	BusinessID      string
	AccountType     string
}
