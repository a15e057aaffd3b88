package instagram

import (
	"context"
	"errors"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	connect "github.com/goliatone/go-social-connect"
	"github.com/goliatone/go-social-connect/graph"
)

// Resolver walks Facebook Pages to the Instagram business or creator
// account they manage: pages listing, per-page access token, linked
// account lookup, then the account profile. The first page that yields
// both a page token and an account wins; pages after it are not probed.
type Resolver struct {
	client   *graph.Client
	logger   connect.Logger
	required []string
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger connect.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRequiredScopes overrides the permission set used for the
// missing-permission diagnosis when no pages come back.
func WithRequiredScopes(scopes []string) ResolverOption {
	return func(r *Resolver) {
		r.required = scopes
	}
}

// NewResolver creates a resolver on the given Graph client.
func NewResolver(client *graph.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:   client,
		required: connect.RequiredInstagramScopes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	return r
}

type accountRef struct {
	ID string `json:"id"`
}

type page struct {
	ID                        string      `json:"id"`
	Name                      string      `json:"name"`
	AccessToken               string      `json:"access_token"`
	Tasks                     []string    `json:"tasks"`
	InstagramBusinessAccount  *accountRef `json:"instagram_business_account"`
	ConnectedInstagramAccount *accountRef `json:"connected_instagram_account"`
}

type pagesResponse struct {
	Data []page `json:"data"`
}

type igProfileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

const (
	accountTypeBusiness = "business"
	accountTypeCreator  = "creator"
)

// Resolve finds the Instagram account reachable through the user token's
// pages. Failures on individual hops are absorbed: only the last error is
// reported, and only when no page ultimately succeeds.
func (r *Resolver) Resolve(ctx context.Context, token *connect.TokenResult) (*connect.ResolvedProfile, error) {
	pages, err := r.listPages(ctx, token.AccessToken)
	if err != nil {
		return nil, graphFailure("accounts", err)
	}

	if len(pages) == 0 {
		missing := connect.MissingPermissions(token.Scopes, token.GranularScopes, r.required)
		if len(missing) > 0 {
			return nil, missingPermissions(missing)
		}
		return nil, connect.ErrNoPages
	}

	var lastErr error
	for _, p := range pages {
		profile, err := r.resolvePage(ctx, p, token.AccessToken)
		if err != nil {
			// a later page can still succeed; remember only the most
			// recent failure
			lastErr = err
			r.logger.Debug("page %s did not resolve: %v", p.ID, err)
			continue
		}
		if profile != nil {
			return profile, nil
		}
	}

	if lastErr != nil {
		return nil, graphFailure("resolve", lastErr)
	}
	return nil, connect.ErrNoBusinessAccount
}

func (r *Resolver) listPages(ctx context.Context, userToken string) ([]page, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token,tasks,instagram_business_account,connected_instagram_account")
	params.Set("access_token", userToken)

	var resp pagesResponse
	if err := r.client.Get(ctx, "me/accounts", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// resolvePage works a single page to completion. A nil, nil return means
// the page is structurally fine but manages no Instagram account.
func (r *Resolver) resolvePage(ctx context.Context, p page, userToken string) (*connect.ResolvedProfile, error) {
	igID, accountType := inlineAccount(p)

	if igID == "" {
		linked, linkedType, err := r.fetchLinkedAccount(ctx, p.ID, userToken)
		if err != nil {
			return nil, err
		}
		igID, accountType = linked, linkedType
	}
	if igID == "" {
		return nil, nil
	}

	pageToken := p.AccessToken
	if pageToken == "" {
		fetched, err := r.fetchPageToken(ctx, p.ID, userToken)
		if err != nil {
			return nil, err
		}
		pageToken = fetched
	}
	if pageToken == "" {
		return nil, nil
	}

	profile, err := r.fetchProfile(ctx, igID, pageToken)
	if err != nil {
		return nil, err
	}

	profile.PageID = p.ID
	profile.PageAccessToken = pageToken
	profile.BusinessID = igID
	profile.AccountType = accountType

	return profile, nil
}

func inlineAccount(p page) (string, string) {
	if p.InstagramBusinessAccount != nil && p.InstagramBusinessAccount.ID != "" {
		return p.InstagramBusinessAccount.ID, accountTypeBusiness
	}
	if p.ConnectedInstagramAccount != nil && p.ConnectedInstagramAccount.ID != "" {
		return p.ConnectedInstagramAccount.ID, accountTypeCreator
	}
	return "", ""
}

func (r *Resolver) fetchLinkedAccount(ctx context.Context, pageID, userToken string) (string, string, error) {
	params := url.Values{}
	params.Set("fields", "instagram_business_account,connected_instagram_account")
	params.Set("access_token", userToken)

	var resp page
	if err := r.client.Get(ctx, pageID, params, &resp); err != nil {
		return "", "", err
	}

	id, accountType := inlineAccount(resp)
	return id, accountType, nil
}

func (r *Resolver) fetchPageToken(ctx context.Context, pageID, userToken string) (string, error) {
	params := url.Values{}
	params.Set("fields", "access_token")
	params.Set("access_token", userToken)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := r.client.Get(ctx, pageID, params, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (r *Resolver) fetchProfile(ctx context.Context, igID, pageToken string) (*connect.ResolvedProfile, error) {
	params := url.Values{}
	params.Set("fields", "id,username")
	params.Set("access_token", pageToken)

	var resp igProfileResponse
	if err := r.client.Get(ctx, igID, params, &resp); err != nil {
		return nil, err
	}

	return &connect.ResolvedProfile{
		AccountID: resp.ID,
		Username:  resp.Username,
	}, nil
}

func missingPermissions(missing []string) error {
	err := goerrors.New("required permissions not granted: "+strings.Join(missing, ", "), goerrors.CategoryAuth).
		WithTextCode(connect.TextCodeMissingPermissions).
		WithCode(goerrors.CodeForbidden)
	err.WithMetadata(map[string]any{"missing_permissions": missing})
	return err
}

// graphFailure folds a hop failure into the Graph error kind, keeping the
// formatted provider message.
func graphFailure(operation string, err error) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}
	return connect.WrapProviderError(connect.ErrGraphAPI, connect.ProviderInstagram, operation, wireError(operation, err))
}

// wireError normalizes a raw Graph call failure.
func wireError(operation string, err error) error {
	var perr *connect.ProviderError
	if errors.As(err, &perr) {
		return err
	}

	var reqErr *graph.RequestError
	if errors.As(err, &reqErr) {
		out := &connect.ProviderError{
			Provider:    connect.ProviderInstagram,
			Operation:   operation,
			Status:      reqErr.Status,
			Description: reqErr.Message,
			Err:         reqErr,
		}
		if reqErr.API != nil {
			out.Code = reqErr.API.Type
			out.Subcode = reqErr.API.ErrorSubcode
			out.Trace = reqErr.API.TraceID
		}
		return out
	}

	return &connect.ProviderError{
		Provider:  connect.ProviderInstagram,
		Operation: operation,
		Err:       err,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
