package connect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Provider identifies a supported social platform.
type Provider = string

const (
	// ProviderFacebook is the Facebook Graph API provider
	ProviderFacebook Provider = "facebook"
	// ProviderInstagram is the Instagram provider, reached through Facebook Login for Business
	ProviderInstagram Provider = "instagram"
	// ProviderTikTok is the TikTok Open API provider
	ProviderTikTok Provider = "tiktok"
	// ProviderThreads is the Threads Graph API provider
	ProviderThreads Provider = "threads"
)

// Providers returns the closed set of supported providers.
func Providers() []Provider {
	return []Provider{ProviderFacebook, ProviderInstagram, ProviderTikTok, ProviderThreads}
}

// IsValidProvider checks membership in the supported provider set.
func IsValidProvider(p string) bool {
	switch p {
	case ProviderFacebook, ProviderInstagram, ProviderTikTok, ProviderThreads:
		return true
	}
	return false
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string `json:"authorization_url"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

// Callback carries the query parameters a provider sends back to the
// redirect URI after the consent screen.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ConnectionSummary is the public shape of a persisted connection.
type ConnectionSummary struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Provider       string     `json:"provider"`
	AccountID      string     `json:"account_id,omitempty"`
	Username       string     `json:"username,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Connections manages persisted social connections.
type Connections interface {
	FindActive(ctx context.Context, userID uuid.UUID, provider Provider) (*SocialConnection, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*SocialConnection, error)
	Upsert(ctx context.Context, record *SocialConnection) (*SocialConnection, error)
	DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider Provider) error
}

// UserDirectory exposes the user lookups needed to reconcile profile
// details captured during a Facebook connection.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CONNECT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CONNECT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CONNECT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func splitName(full string) (first, last string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
