package connect

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SocialConnection is the persisted link between a user and one social
// provider's credentials.
type SocialConnection struct {
	bun.BaseModel `bun:"table:social_connections,alias:conn"`

	ID        uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Provider  Provider       `bun:"provider,notnull" json:"provider,omitempty"`
	Metadata  map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Summary returns the public view of the connection.
func (c *SocialConnection) Summary() *ConnectionSummary {
	s := &ConnectionSummary{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		Provider:  c.Provider,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if v, ok := c.Metadata[metaAccountID].(string); ok {
		s.AccountID = v
	}
	if v, ok := c.Metadata[metaUsername].(string); ok {
		s.Username = v
	}
	if v, ok := c.Metadata[metaExpiresAt].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.TokenExpiresAt = &t
		}
	}
	return s
}

// SetMetadata replaces the wire-format metadata map from a typed value.
func (c *SocialConnection) SetMetadata(m ConnectionMetadata) {
	if m == nil {
		return
	}
	c.Metadata = m.MetadataMap()
}

// ConnectionMetadata is the typed, per-provider shape of the metadata blob.
// The flat map is only the wire format; provider code works with the
// concrete types below.
type ConnectionMetadata interface {
	MetadataMap() map[string]any
}

// Metadata wire keys shared across providers.
const (
	metaAccessToken  = "access_token"
	metaRefreshToken = "refresh_token"
	metaTokenType    = "token_type"
	metaExpiresAt    = "expires_at"
	metaAccountID    = "account_id"
	metaUsername     = "username"
	metaEmail        = "email"
	metaPageID       = "page_id"
	metaPageToken    = "page_access_token"
	metaBusinessID   = "business_account_id"
	metaAccountType  = "account_type"
	metaOpenID       = "open_id"
)

// FacebookMetadata is the credential payload stored for Facebook connections.
type FacebookMetadata struct {
	AccessToken string
	TokenType   string
	ExpiresAt   *time.Time
	AccountID   string
	Name        string
	Email       string
}

func (m FacebookMetadata) MetadataMap() map[string]any {
	out := map[string]any{
		metaAccessToken: m.AccessToken,
		metaTokenType:   m.TokenType,
		metaAccountID:   m.AccountID,
	}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.Email != "" {
		out[metaEmail] = m.Email
	}
	putExpiry(out, m.ExpiresAt)
	return out
}

// InstagramMetadata is the credential payload stored for Instagram
// connections, including the Facebook Page it was resolved through.
type InstagramMetadata struct {
	AccessToken     string
	TokenType       string
	ExpiresAt       *time.Time
	AccountID       string
	Username        string
	PageID          string
	PageAccessToken string
	BusinessID      string
	AccountType     string
}

func (m InstagramMetadata) MetadataMap() map[string]any {
	out := map[string]any{
		metaAccessToken: m.AccessToken,
		metaTokenType:   m.TokenType,
		metaAccountID:   m.AccountID,
		metaPageID:      m.PageID,
		metaPageToken:   m.PageAccessToken,
		metaBusinessID:  m.BusinessID,
	}
	if m.Username != "" {
		out[metaUsername] = m.Username
	}
	if m.AccountType != "" {
		out[metaAccountType] = m.AccountType
	}
	putExpiry(out, m.ExpiresAt)
	return out
}

// TikTokMetadata is the credential payload stored for TikTok connections.
type TikTokMetadata struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    *time.Time
	OpenID       string
}

func (m TikTokMetadata) MetadataMap() map[string]any {
	out := map[string]any{
		metaAccessToken:  m.AccessToken,
		metaRefreshToken: m.RefreshToken,
		metaTokenType:    m.TokenType,
		metaOpenID:       m.OpenID,
	}
	if m.OpenID != "" {
		out[metaAccountID] = m.OpenID
	}
	putExpiry(out, m.ExpiresAt)
	return out
}

// ThreadsMetadata is the credential payload stored for Threads connections.
type ThreadsMetadata struct {
	AccessToken string
	TokenType   string
	ExpiresAt   *time.Time
	AccountID   string
	Username    string
}

func (m ThreadsMetadata) MetadataMap() map[string]any {
	out := map[string]any{
		metaAccessToken: m.AccessToken,
		metaTokenType:   m.TokenType,
		metaAccountID:   m.AccountID,
	}
	if m.Username != "" {
		out[metaUsername] = m.Username
	}
	putExpiry(out, m.ExpiresAt)
	return out
}

func putExpiry(out map[string]any, t *time.Time) {
	if t != nil && !t.IsZero() {
		out[metaExpiresAt] = t.UTC().Format(time.RFC3339)
	}
}

// AccessTokenFrom reads the stored access token out of a wire metadata map.
func AccessTokenFrom(meta map[string]any) (string, bool) {
	v, ok := meta[metaAccessToken].(string)
	return v, ok && v != ""
}

// RefreshTokenFrom reads the stored refresh token out of a wire metadata map.
func RefreshTokenFrom(meta map[string]any) (string, bool) {
	v, ok := meta[metaRefreshToken].(string)
	return v, ok && v != ""
}

// User is the owning user of a connection, reconciled on Facebook flows.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	EmailValidated bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins the user's first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
