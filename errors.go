package connect

import "github.com/goliatone/go-errors"

const (
	TextCodeNotConfigured      = "connect_not_configured"
	TextCodeMissingCode        = "connect_missing_code"
	TextCodeAuthDenied         = "connect_authorization_denied"
	TextCodeInvalidState       = "connect_invalid_state"
	TextCodeInvalidCode        = "connect_invalid_code"
	TextCodeInvalidToken       = "connect_invalid_token"
	TextCodeAppMismatch        = "connect_app_mismatch"
	TextCodeMissingPermissions = "connect_missing_permissions"
	TextCodeNoPages            = "connect_no_pages"
	TextCodeNoBusinessAccount  = "connect_no_business_account"
	TextCodeGraphAPIError      = "connect_graph_api_error"
	TextCodeNetworkError       = "connect_network_error"
	TextCodeParseError         = "connect_parse_error"
	TextCodeProfileMissing     = "connect_profile_missing"
	TextCodeEmailTaken         = "connect_email_taken"
	TextCodeRefreshUnsupported = "connect_refresh_unsupported"
)

// ErrNotConfigured is returned when a provider is missing its client id,
// secret, or redirect URI.
var ErrNotConfigured = errors.New("provider not configured", errors.CategoryValidation).
	WithTextCode(TextCodeNotConfigured).
	WithCode(errors.CodeInternal)

// ErrMissingCode is returned when the callback carries no authorization code.
var ErrMissingCode = errors.New("missing authorization code", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCode).
	WithCode(errors.CodeBadRequest)

// ErrAuthorizationDenied is returned when the user declined consent.
var ErrAuthorizationDenied = errors.New("authorization denied", errors.CategoryAuth).
	WithTextCode(TextCodeAuthDenied).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidState is returned when the oauth state cannot be decoded back
// to a user identity.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCode is returned when the code-for-token exchange fails.
var ErrInvalidCode = errors.New("authorization code exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned when introspection reports a dead token.
var ErrInvalidToken = errors.New("access token is not valid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrAppMismatch is returned when a token belongs to a different application.
var ErrAppMismatch = errors.New("access token issued for another application", errors.CategoryAuth).
	WithTextCode(TextCodeAppMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrMissingPermissions is returned when granted scopes lack required ones.
var ErrMissingPermissions = errors.New("required permissions not granted", errors.CategoryAuth).
	WithTextCode(TextCodeMissingPermissions).
	WithCode(errors.CodeForbidden)

// ErrNoPages is returned when the account manages no Facebook Pages.
var ErrNoPages = errors.New("no facebook pages available", errors.CategoryNotFound).
	WithTextCode(TextCodeNoPages).
	WithCode(errors.CodeNotFound)

// ErrNoBusinessAccount is returned when no page links an Instagram
// business or creator account.
var ErrNoBusinessAccount = errors.New("no instagram business account linked", errors.CategoryNotFound).
	WithTextCode(TextCodeNoBusinessAccount).
	WithCode(errors.CodeNotFound)

// ErrGraphAPI is returned for a Graph API error envelope.
var ErrGraphAPI = errors.New("graph api request failed", errors.CategoryAuth).
	WithTextCode(TextCodeGraphAPIError).
	WithCode(errors.CodeUnauthorized)

// ErrNetwork is returned when an outbound provider call fails at transport level.
var ErrNetwork = errors.New("provider request failed", errors.CategoryInternal).
	WithTextCode(TextCodeNetworkError).
	WithCode(errors.CodeInternal)

// ErrParse is returned when a provider response body cannot be decoded.
var ErrParse = errors.New("provider response could not be parsed", errors.CategoryInternal).
	WithTextCode(TextCodeParseError).
	WithCode(errors.CodeInternal)

// ErrProfileMissing is returned when a provider profile lacks an account id.
var ErrProfileMissing = errors.New("provider profile missing account id", errors.CategoryAuth).
	WithTextCode(TextCodeProfileMissing).
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when reconciling a provider email that belongs
// to a different user.
var ErrEmailTaken = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrRefreshUnsupported is returned when a provider has no refresh grant.
var ErrRefreshUnsupported = errors.New("provider does not support token refresh", errors.CategoryBadInput).
	WithTextCode(TextCodeRefreshUnsupported).
	WithCode(errors.CodeBadRequest)
