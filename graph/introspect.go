package graph

import (
	"context"
	"net/url"

	connect "github.com/goliatone/go-social-connect"
)

// Introspector validates tokens against the Graph debug_token endpoint
// using an app access token.
type Introspector struct {
	client    *Client
	appID     string
	appSecret string
}

// NewIntrospector creates an introspector for the given app credentials.
func NewIntrospector(client *Client, appID, appSecret string) *Introspector {
	return &Introspector{
		client:    client,
		appID:     appID,
		appSecret: appSecret,
	}
}

type debugTokenResponse struct {
	Data struct {
		AppID          string                  `json:"app_id"`
		UserID         string                  `json:"user_id"`
		IsValid        bool                    `json:"is_valid"`
		ExpiresAt      int64                   `json:"expires_at"`
		Scopes         []string                `json:"scopes"`
		GranularScopes []connect.GranularScope `json:"granular_scopes"`
	} `json:"data"`
}

// IntrospectToken reports a token's liveness, owning application, and
// granted scopes.
func (i *Introspector) IntrospectToken(ctx context.Context, accessToken string) (*connect.Introspection, error) {
	params := url.Values{}
	params.Set("input_token", accessToken)
	params.Set("access_token", i.appID+"|"+i.appSecret)

	var resp debugTokenResponse
	if err := i.client.Get(ctx, "debug_token", params, &resp); err != nil {
		return nil, err
	}

	return &connect.Introspection{
		AppID:          resp.Data.AppID,
		UserID:         resp.Data.UserID,
		IsValid:        resp.Data.IsValid,
		Scopes:         resp.Data.Scopes,
		GranularScopes: resp.Data.GranularScopes,
		ExpiresAt:      resp.Data.ExpiresAt,
	}, nil
}

// VerifyOwnership checks that the introspected token belongs to appID.
func (i *Introspector) VerifyOwnership(intros *connect.Introspection) error {
	if intros == nil || !intros.IsValid {
		return connect.ErrInvalidToken
	}
	if intros.AppID != i.appID {
		return connect.ErrAppMismatch
	}
	return nil
}
