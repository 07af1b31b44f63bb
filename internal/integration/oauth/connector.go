package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Params struct {
	fx.In

	Cfg          config.Config
	Log          *zap.Logger
	Integrations domain.Service
}

// Connector starts and completes provider OAuth flows and persists the result.
type Connector struct {
	cfg          config.Config
	log          *zap.Logger
	integrations domain.Service
	dialects     map[string]Dialect
	httpClient   *http.Client
}

type Option func(*Connector)

// WithDialect overrides the dialect registered for its provider.
func WithDialect(d Dialect) Option {
	return func(c *Connector) { c.dialects[d.Provider()] = d }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) { c.httpClient = client }
}

func NewConnector(p Params) *Connector {
	return New(p.Cfg, p.Integrations, p.Log)
}

func New(cfg config.Config, integrations domain.Service, log *zap.Logger, opts ...Option) *Connector {
	c := &Connector{
		cfg:          cfg,
		log:          log.Named("integration.oauth"),
		integrations: integrations,
		dialects:     DefaultDialects(cfg),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supports reports whether provider connects through OAuth.
func (c *Connector) Supports(provider string) bool {
	_, ok := c.dialects[normalize(provider)]
	return ok
}

// CallbackURL is the redirect URI registered with each provider.
func (c *Connector) CallbackURL(provider string) string {
	return c.cfg.AppURL + "/api/integrations/" + normalize(provider) + "/callback"
}

// ResultURL is where the browser lands after the callback.
func (c *Connector) ResultURL(provider string, err error) string {
	q := url.Values{}
	if err != nil {
		q.Set("error", Reason(err))
	} else {
		q.Set("success", normalize(provider))
	}
	return c.cfg.AppURL + "/integrations?" + q.Encode()
}

type AuthorizeResult struct {
	URL   string
	State State
}

// Authorize builds the provider consent URL for orgID.
func (c *Connector) Authorize(ctx context.Context, provider string, orgID snowflake.ID) (*AuthorizeResult, error) {
	_ = ctx

	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	oc, dialect, err := c.oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	state, err := newState(orgID)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeState(state)
	if err != nil {
		return nil, err
	}

	return &AuthorizeResult{
		URL:   oc.AuthCodeURL(encoded, dialect.AuthOptions()...),
		State: state,
	}, nil
}

type CallbackRequest struct {
	Query url.Values
	// ExpectedNonce is the nonce remembered by the browser session; empty skips the check.
	ExpectedNonce string
}

// Complete exchanges the callback code and stores the connection.
func (c *Connector) Complete(ctx context.Context, provider string, req CallbackRequest) (snowflake.ID, error) {
	provider = normalize(provider)
	if denied := strings.TrimSpace(req.Query.Get("error")); denied != "" {
		c.log.Info("provider denied authorization", zap.String("provider", provider), zap.String("error", denied))
		return 0, ErrAccessDenied
	}

	oc, dialect, err := c.oauthConfig(provider)
	if err != nil {
		return 0, err
	}

	state, orgID, err := DecodeState(req.Query.Get("state"))
	if err != nil {
		return 0, err
	}
	if req.ExpectedNonce != "" && subtle.ConstantTimeCompare([]byte(req.ExpectedNonce), []byte(state.Nonce)) != 1 {
		return 0, ErrStateMismatch
	}

	code := strings.TrimSpace(req.Query.Get("code"))
	if code == "" {
		return orgID, ErrMissingCode
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := oc.Exchange(exchangeCtx, code)
	if err != nil {
		c.log.Warn("token exchange failed", zap.String("provider", provider), zap.Error(err))
		return orgID, ErrExchangeFailed
	}

	data, err := dialect.Describe(ctx, token, req.Query)
	if err != nil {
		if errors.Is(err, ErrMissingRealmID) {
			return orgID, err
		}
		c.log.Warn("provider metadata lookup failed", zap.String("provider", provider), zap.Error(err))
		return orgID, ErrExchangeFailed
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		expiresAt = &expiry
	}

	if _, err := c.integrations.Upsert(ctx, domain.UpsertRequest{
		OrgID:          orgID,
		Provider:       provider,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: expiresAt,
		ProviderData:   data,
	}); err != nil {
		return orgID, err
	}
	return orgID, nil
}

func (c *Connector) oauthConfig(provider string) (*oauth2.Config, Dialect, error) {
	provider = normalize(provider)
	dialect, ok := c.dialects[provider]
	if !ok {
		return nil, nil, ErrUnsupportedProvider
	}
	client := c.cfg.OAuthClient(provider)
	if !client.Configured() {
		return nil, nil, ErrNotConfigured
	}
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     dialect.Endpoint(),
		RedirectURL:  c.CallbackURL(provider),
		Scopes:       dialect.Scopes(),
	}, dialect, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
