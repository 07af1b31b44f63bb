// Package oauth runs the authorization-code flow that connects an organization to a provider.
package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Dialect describes how one provider speaks OAuth.
type Dialect interface {
	Provider() string
	Endpoint() oauth2.Endpoint
	Scopes() []string
	AuthOptions() []oauth2.AuthCodeOption
	// Describe builds non-secret provider_data from the token and callback query.
	Describe(ctx context.Context, token *oauth2.Token, query url.Values) (any, error)
}

type slackDialect struct {
	endpoint oauth2.Endpoint
}

func (slackDialect) Provider() string { return config.ProviderSlack }

func (d slackDialect) Endpoint() oauth2.Endpoint { return d.endpoint }

func (slackDialect) Scopes() []string { return nil }

// Slack expects bot scopes comma separated in the scope parameter.
func (slackDialect) AuthOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", strings.Join([]string{
			"users:read",
			"users:read.email",
			"channels:read",
			"groups:read",
			"channels:manage",
			"groups:write",
			"chat:write",
		}, ",")),
	}
}

func (slackDialect) Describe(_ context.Context, token *oauth2.Token, _ url.Values) (any, error) {
	data := domain.SlackData{}
	if team, ok := token.Extra("team").(map[string]any); ok {
		data.TeamID, _ = team["id"].(string)
		data.TeamName, _ = team["name"].(string)
	}
	data.BotUserID, _ = token.Extra("bot_user_id").(string)
	data.Scope, _ = token.Extra("scope").(string)
	if data.TeamID == "" {
		return nil, fmt.Errorf("%w: slack response missing team", domain.ErrInvalidProviderData)
	}
	return data, nil
}

type githubDialect struct {
	endpoint oauth2.Endpoint
	api      *resty.Client
}

func (githubDialect) Provider() string { return config.ProviderGitHub }

func (d githubDialect) Endpoint() oauth2.Endpoint { return d.endpoint }

func (githubDialect) Scopes() []string { return []string{"read:org", "admin:org", "read:user"} }

func (githubDialect) AuthOptions() []oauth2.AuthCodeOption { return nil }

type githubUser struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

func (d githubDialect) Describe(ctx context.Context, token *oauth2.Token, _ url.Values) (any, error) {
	var user githubUser
	resp, err := d.api.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&user).
		Get("/user")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github user lookup: status %d", resp.StatusCode())
	}
	scope, _ := token.Extra("scope").(string)
	return domain.GitHubData{Login: user.Login, UserID: user.ID, Scope: scope}, nil
}

type deelDialect struct {
	endpoint oauth2.Endpoint
}

func (deelDialect) Provider() string { return config.ProviderDeel }

func (d deelDialect) Endpoint() oauth2.Endpoint { return d.endpoint }

func (deelDialect) Scopes() []string {
	return []string{"contracts:read", "contracts:write", "people:read", "organizations:read"}
}

func (deelDialect) AuthOptions() []oauth2.AuthCodeOption { return nil }

func (deelDialect) Describe(_ context.Context, token *oauth2.Token, _ url.Values) (any, error) {
	scope, _ := token.Extra("scope").(string)
	return domain.DeelData{Scope: scope}, nil
}

type quickBooksDialect struct {
	endpoint oauth2.Endpoint
	sandbox  bool
}

func (quickBooksDialect) Provider() string { return config.ProviderQuickBooks }

func (d quickBooksDialect) Endpoint() oauth2.Endpoint { return d.endpoint }

func (quickBooksDialect) Scopes() []string { return []string{"com.intuit.quickbooks.accounting"} }

func (quickBooksDialect) AuthOptions() []oauth2.AuthCodeOption { return nil }

// The company id only arrives on the callback query.
func (d quickBooksDialect) Describe(_ context.Context, _ *oauth2.Token, query url.Values) (any, error) {
	realmID := strings.TrimSpace(query.Get("realmId"))
	if realmID == "" {
		return nil, ErrMissingRealmID
	}
	env := "production"
	if d.sandbox {
		env = "sandbox"
	}
	return domain.QuickBooksData{RealmID: realmID, Environment: env}, nil
}

type rampDialect struct {
	endpoint oauth2.Endpoint
}

func (rampDialect) Provider() string { return config.ProviderRamp }

func (d rampDialect) Endpoint() oauth2.Endpoint { return d.endpoint }

func (rampDialect) Scopes() []string {
	return []string{"users:read", "users:write", "cards:read", "transactions:read"}
}

func (rampDialect) AuthOptions() []oauth2.AuthCodeOption { return nil }

func (rampDialect) Describe(_ context.Context, token *oauth2.Token, _ url.Values) (any, error) {
	scope, _ := token.Extra("scope").(string)
	return domain.RampData{Scope: scope}, nil
}

// DefaultDialects returns the production OAuth dialects keyed by provider.
func DefaultDialects(cfg config.Config) map[string]Dialect {
	github := resty.New().
		SetBaseURL("https://api.github.com").
		SetTimeout(10 * time.Second)

	list := []Dialect{
		slackDialect{endpoint: oauth2.Endpoint{
			AuthURL:   "https://slack.com/oauth/v2/authorize",
			TokenURL:  "https://slack.com/api/oauth.v2.access",
			AuthStyle: oauth2.AuthStyleInParams,
		}},
		githubDialect{endpoint: endpoints.GitHub, api: github},
		deelDialect{endpoint: oauth2.Endpoint{
			AuthURL:   "https://app.deel.com/oauth2/authorize",
			TokenURL:  "https://app.deel.com/oauth2/tokens",
			AuthStyle: oauth2.AuthStyleInHeader,
		}},
		quickBooksDialect{
			endpoint: oauth2.Endpoint{
				AuthURL:   "https://appcenter.intuit.com/connect/oauth2",
				TokenURL:  "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			sandbox: cfg.QuickBooksSandbox,
		},
		rampDialect{endpoint: oauth2.Endpoint{
			AuthURL:   "https://app.ramp.com/v1/authorize",
			TokenURL:  "https://api.ramp.com/developer/v1/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		}},
	}

	out := make(map[string]Dialect, len(list))
	for _, d := range list {
		out[d.Provider()] = d
	}
	return out
}
