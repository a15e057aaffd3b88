package connect

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Orchestrator drives a single provider's connection flow: Initiate hands
// out the authorization URL, Complete turns the callback into a persisted
// connection. Provider-specific steps (introspection, profile resolution,
// refresh) are capabilities of the underlying ProviderFlow.
type Orchestrator struct {
	flow   ProviderFlow
	state  StateCodec
	conns  Connections
	users  UserDirectory
	logger Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStateCodec sets a custom state codec.
func WithStateCodec(codec StateCodec) Option {
	return func(o *Orchestrator) {
		o.state = codec
	}
}

// WithUserDirectory enables owner profile reconciliation on completion.
// Only the Facebook flow carries profile details worth reconciling.
func WithUserDirectory(users UserDirectory) Option {
	return func(o *Orchestrator) {
		o.users = users
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator builds an orchestrator for one provider flow. The flow
// constructor is expected to have validated its configuration already;
// missing collaborators fail here so a half-built orchestrator never
// reaches a request.
func NewOrchestrator(flow ProviderFlow, conns Connections, opts ...Option) (*Orchestrator, error) {
	if flow == nil {
		return nil, goerrors.Wrap(ErrNotConfigured, goerrors.CategoryValidation, "provider flow is required")
	}
	if conns == nil {
		return nil, goerrors.Wrap(ErrNotConfigured, goerrors.CategoryValidation, "connection repository is required")
	}

	o := &Orchestrator{
		flow:  flow,
		conns: conns,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.state == nil {
		o.state = NewStateCodec()
	}
	if o.logger == nil {
		o.logger = defLogger{}
	}

	return o, nil
}

// Provider returns the provider this orchestrator serves.
func (o *Orchestrator) Provider() Provider {
	return o.flow.Name()
}

// Initiate starts the flow for a user: encode state, resolve scopes, and
// build the provider authorization URL.
func (o *Orchestrator) Initiate(ctx context.Context, userID uuid.UUID, scopes ...string) (*AuthRedirect, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during connection initiation")
	default:
	}

	state, err := o.state.Encode(userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode oauth state")
	}

	resolved := o.flow.Scopes(scopes)
	authURL := o.flow.AuthCodeURL(state, resolved)

	o.logger.Debug("initiated %s flow user_id=%s scopes=%s", o.flow.Name(), userID, strings.Join(resolved, ","))

	return &AuthRedirect{
		URL:      authURL,
		State:    state,
		Provider: o.flow.Name(),
	}, nil
}

// ValidateState pre-checks a state string without completing the flow.
func (o *Orchestrator) ValidateState(state string) (uuid.UUID, bool) {
	return o.state.Decode(state)
}

// Complete finishes the flow after the provider callback. Checks run in a
// fixed order and short-circuit on the first failure: provider error,
// missing code, state, exchange, introspection, profile resolution,
// persistence.
func (o *Orchestrator) Complete(ctx context.Context, cb Callback) (*ConnectionSummary, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during connection completion")
	default:
	}

	provider := o.flow.Name()

	if cb.Error != "" {
		o.logger.Info("%s consent denied error=%s", provider, cb.Error)
		return nil, deniedError(cb)
	}

	if strings.TrimSpace(cb.Code) == "" {
		return nil, ErrMissingCode
	}

	userID, ok := o.state.Decode(cb.State)
	if !ok {
		o.logger.Info("%s callback carried undecodable state", provider)
		return nil, ErrInvalidState
	}

	token, err := o.flow.Exchange(ctx, cb.Code)
	if err != nil {
		return nil, WrapProviderError(ErrInvalidCode, provider, "exchange", err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, WrapProviderError(ErrInvalidCode, provider, "exchange", nil)
	}

	if introspector, ok := o.flow.(TokenIntrospector); ok {
		if err := o.introspect(ctx, introspector, token); err != nil {
			return nil, err
		}
	}

	var profile *ResolvedProfile
	if resolver, ok := o.flow.(ProfileResolver); ok {
		profile, err = resolver.ResolveProfile(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled before connection write")
	default:
	}

	record := &SocialConnection{
		UserID:   userID,
		Provider: provider,
	}
	record.SetMetadata(o.buildMetadata(token, profile))

	saved, err := o.conns.Upsert(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save connection")
	}

	if o.users != nil && profile != nil {
		if err := o.reconcileUser(ctx, userID, profile); err != nil {
			return nil, err
		}
	}

	o.logger.Info("%s connection saved user_id=%s connection_id=%s", provider, userID, saved.ID)

	return saved.Summary(), nil
}

// RefreshToken exchanges an expired token for a fresh one on providers
// that support it.
func (o *Orchestrator) RefreshToken(ctx context.Context, token string) (*TokenResult, error) {
	refresher, ok := o.flow.(TokenRefresher)
	if !ok {
		return nil, ErrRefreshUnsupported
	}

	refreshed, err := refresher.RefreshToken(ctx, token)
	if err != nil {
		return nil, WrapProviderError(ErrInvalidToken, o.flow.Name(), "refresh", err)
	}
	if refreshed == nil || refreshed.AccessToken == "" {
		return nil, WrapProviderError(ErrInvalidToken, o.flow.Name(), "refresh", nil)
	}

	return refreshed, nil
}

func (o *Orchestrator) introspect(ctx context.Context, introspector TokenIntrospector, token *TokenResult) error {
	provider := o.flow.Name()

	intros, err := introspector.IntrospectToken(ctx, token.AccessToken)
	if err != nil {
		return WrapProviderError(ErrInvalidToken, provider, "introspect", err)
	}
	if !intros.IsValid {
		return ErrInvalidToken
	}

	// introspection is authoritative for granted scopes; the exchange
	// response often omits them entirely
	if len(intros.Scopes) > 0 {
		token.Scopes = intros.Scopes
	}
	token.GranularScopes = intros.GranularScopes

	return nil
}

func (o *Orchestrator) buildMetadata(token *TokenResult, profile *ResolvedProfile) ConnectionMetadata {
	if builder, ok := o.flow.(MetadataBuilder); ok {
		return builder.BuildMetadata(token, profile)
	}
	return genericMetadata{token: token, profile: profile}
}

// reconcileUser opportunistically refreshes the owning user's display name
// and email from the provider profile. A colliding email belonging to a
// different user rejects the profile update.
func (o *Orchestrator) reconcileUser(ctx context.Context, userID uuid.UUID, profile *ResolvedProfile) error {
	if profile.Name == "" && profile.Email == "" {
		return nil
	}

	user, err := o.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		o.logger.Error("owner lookup failed during reconcile user_id=%s err=%v", userID, err)
		return nil
	}

	dirty := false

	if profile.Name != "" && profile.Name != user.FullName() {
		user.FirstName, user.LastName = splitName(profile.Name)
		dirty = true
	}

	if profile.Email != "" && !strings.EqualFold(profile.Email, user.Email) {
		existing, err := o.users.FindByEmail(ctx, profile.Email)
		switch {
		case err != nil && !IsNotFound(err):
			// collision check is inconclusive, keep the stored email
			o.logger.Error("email collision check failed user_id=%s err=%v", userID, err)
		case err == nil && existing != nil && existing.ID != user.ID:
			return ErrEmailTaken
		default:
			user.Email = profile.Email
			dirty = true
		}
	}

	if !dirty {
		return nil
	}

	if err := o.users.UpdateProfile(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user profile")
	}

	return nil
}

func deniedError(cb Callback) error {
	msg := cb.ErrorDescription
	if msg == "" {
		msg = "authorization denied"
	}
	return goerrors.New(msg, goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthDenied).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"provider_error": cb.Error})
}

// genericMetadata is the wire-map fallback for flows that do not shape
// their own metadata.
type genericMetadata struct {
	token   *TokenResult
	profile *ResolvedProfile
}

func (g genericMetadata) MetadataMap() map[string]any {
	out := map[string]any{}
	if g.token != nil {
		out[metaAccessToken] = g.token.AccessToken
		if g.token.RefreshToken != "" {
			out[metaRefreshToken] = g.token.RefreshToken
		}
		if g.token.TokenType != "" {
			out[metaTokenType] = g.token.TokenType
		}
		putExpiry(out, g.token.ExpiresAt())
	}
	if g.profile != nil {
		if g.profile.AccountID != "" {
			out[metaAccountID] = g.profile.AccountID
		}
		if g.profile.Username != "" {
			out[metaUsername] = g.profile.Username
		}
	}
	return out
}
