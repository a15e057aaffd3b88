package connect

import (
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// CurrentUserFunc resolves the authenticated user for a request. The
// host application owns sessions; the controller only needs the id.
type CurrentUserFunc func(ctx router.Context) (uuid.UUID, error)

// HTTPController exposes the connection flows over HTTP.
type HTTPController struct {
	orchestrators map[Provider]*Orchestrator
	conns         Connections
	config        HTTPConfig
	logger        Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// CurrentUser resolves the acting user; requests without one get 401.
	CurrentUser CurrentUserFunc

	// SuccessRedirect receives the browser after a completed callback
	// (default: "/connections")
	SuccessRedirect string

	// ErrorRedirect receives the browser after a failed callback
	// (default: "/connections?error=connect_failed")
	ErrorRedirect string

	// ErrorHandler overrides the default error responses (optional)
	ErrorHandler func(ctx router.Context, err error) error

	Logger Logger
}

// NewHTTPController creates the controller over a set of per-provider
// orchestrators.
func NewHTTPController(orchestrators []*Orchestrator, conns Connections, cfg HTTPConfig) (*HTTPController, error) {
	if len(orchestrators) == 0 {
		return nil, goerrors.Wrap(ErrNotConfigured, goerrors.CategoryValidation, "at least one provider orchestrator is required")
	}
	if cfg.CurrentUser == nil {
		return nil, goerrors.Wrap(ErrNotConfigured, goerrors.CategoryValidation, "current user resolver is required")
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/connections"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/connections?error=connect_failed"
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	byProvider := make(map[Provider]*Orchestrator, len(orchestrators))
	for _, orch := range orchestrators {
		if orch == nil {
			continue
		}
		byProvider[orch.Provider()] = orch
	}

	return &HTTPController{
		orchestrators: byProvider,
		conns:         conns,
		config:        cfg,
		logger:        cfg.Logger,
	}, nil
}

// RegisterRoutes registers the connection routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/", c.ListConnections)
	group.Get("/:provider/callback", c.Callback)
	group.Post("/:provider/refresh", c.Refresh)
	group.Delete("/:provider", c.Disconnect)
	group.Get("/:provider", c.Connect)
}

// ListConnections returns the acting user's connections.
func (c *HTTPController) ListConnections(ctx router.Context) error {
	userID, err := c.config.CurrentUser(ctx)
	if err != nil || userID == uuid.Nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	records, err := c.conns.ListByUser(ctx.Context(), userID)
	if err != nil {
		return c.handleError(ctx, err)
	}

	summaries := make([]*ConnectionSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.Summary())
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"connections": summaries,
	})
}

// Connect starts the flow and redirects to the provider consent screen.
func (c *HTTPController) Connect(ctx router.Context) error {
	orch, err := c.orchestratorFor(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	userID, err := c.config.CurrentUser(ctx)
	if err != nil || userID == uuid.Nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	var scopes []string
	if raw := ctx.Query("scopes"); raw != "" {
		scopes = strings.Split(raw, ",")
	}

	redirect, err := orch.Initiate(ctx.Context(), userID, scopes...)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback finishes the flow after the provider redirects back. The user
// identity rides in the state parameter, not the session, so an expired
// session does not strand the callback.
func (c *HTTPController) Callback(ctx router.Context) error {
	orch, err := c.orchestratorFor(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	cb := Callback{
		Code:             ctx.Query("code"),
		State:            ctx.Query("state"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
	}

	summary, err := orch.Complete(ctx.Context(), cb)
	if err != nil {
		c.logger.Info("%s callback failed err=%v", orch.Provider(), err)
		return ctx.Redirect(c.errorRedirect(err), http.StatusTemporaryRedirect)
	}

	redirectURL := appendQueryParam(c.config.SuccessRedirect, "connected", summary.Provider)
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

// Refresh exchanges the stored token for a fresh one and persists it.
func (c *HTTPController) Refresh(ctx router.Context) error {
	orch, err := c.orchestratorFor(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	userID, err := c.config.CurrentUser(ctx)
	if err != nil || userID == uuid.Nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	record, err := c.conns.FindActive(ctx.Context(), userID, orch.Provider())
	if err != nil {
		return c.handleError(ctx, err)
	}

	// TikTok rotates on the refresh token, the Meta family on the
	// access token itself
	credential, ok := RefreshTokenFrom(record.Metadata)
	if !ok {
		credential, ok = AccessTokenFrom(record.Metadata)
	}
	if !ok {
		return c.handleError(ctx, ErrInvalidToken)
	}

	token, err := orch.RefreshToken(ctx.Context(), credential)
	if err != nil {
		return c.handleError(ctx, err)
	}

	record.Metadata[metaAccessToken] = token.AccessToken
	if token.RefreshToken != "" {
		record.Metadata[metaRefreshToken] = token.RefreshToken
	}
	// the stored expiry describes the previous credential
	delete(record.Metadata, metaExpiresAt)
	putExpiry(record.Metadata, token.ExpiresAt())

	saved, err := c.conns.Upsert(ctx.Context(), record)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, saved.Summary())
}

// Disconnect removes the user's connection for a provider.
func (c *HTTPController) Disconnect(ctx router.Context) error {
	orch, err := c.orchestratorFor(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}

	userID, err := c.config.CurrentUser(ctx)
	if err != nil || userID == uuid.Nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	if err := c.conns.DeleteByUserAndProvider(ctx.Context(), userID, orch.Provider()); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "disconnected",
	})
}

func (c *HTTPController) orchestratorFor(ctx router.Context) (*Orchestrator, error) {
	name := ctx.Param("provider")
	if orch, ok := c.orchestrators[name]; ok {
		return orch, nil
	}
	return nil, goerrors.New("unsupported provider: "+name, goerrors.CategoryBadInput).
		WithCode(goerrors.CodeBadRequest)
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	status := router.StatusInternalServerError
	body := map[string]any{"error": err.Error()}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code != 0 {
			status = richErr.Code
		}
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
	}

	return ctx.JSON(status, body)
}

func (c *HTTPController) errorRedirect(err error) string {
	out := c.config.ErrorRedirect

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		out = appendQueryParam(out, "error", richErr.TextCode)
	}
	return out
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
