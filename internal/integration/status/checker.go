// Package status probes API-key providers that have no OAuth flow.
package status

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/go-resty/resty/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ReasonNotConfigured      = "not_configured"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonUnreachable        = "unreachable"
	ReasonUnexpectedStatus   = "unexpected_status"
)

type probe struct {
	apiKey string
	client *resty.Client
	path   string
}

// Checker reports reachability for Mercury and Ramp API keys.
type Checker struct {
	log    *zap.Logger
	probes map[string]probe
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

type Option func(*Checker)

// WithBaseURL points provider's probe at baseURL.
func WithBaseURL(provider, baseURL string) Option {
	return func(c *Checker) {
		if p, ok := c.probes[provider]; ok {
			p.client.SetBaseURL(baseURL)
		}
	}
}

func NewChecker(p Params) *Checker {
	return New(p.Cfg, p.Log)
}

func New(cfg config.Config, log *zap.Logger, opts ...Option) *Checker {
	newClient := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json")
	}
	c := &Checker{
		log: log.Named("integration.status"),
		probes: map[string]probe{
			config.ProviderMercury: {
				apiKey: cfg.MercuryAPIKey,
				client: newClient("https://api.mercury.com/api/v1"),
				path:   "/accounts",
			},
			config.ProviderRamp: {
				apiKey: cfg.RampAPIKey,
				client: newClient("https://api.ramp.com/developer/v1"),
				path:   "/business",
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) Supports(provider string) bool {
	_, ok := c.probes[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

// Check never returns an error; failures are folded into the reason.
func (c *Checker) Check(ctx context.Context, provider string) domain.APIKeyStatus {
	provider = strings.ToLower(strings.TrimSpace(provider))
	p, ok := c.probes[provider]
	if !ok || strings.TrimSpace(p.apiKey) == "" {
		return domain.APIKeyStatus{Reason: ReasonNotConfigured}
	}

	hint := maskKey(p.apiKey)
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		Get(p.path)
	if err != nil {
		c.log.Warn("api key probe failed", zap.String("provider", provider), zap.Error(err))
		return domain.APIKeyStatus{Reason: ReasonUnreachable, KeyHint: hint}
	}

	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return domain.APIKeyStatus{Connected: true, KeyHint: hint}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.APIKeyStatus{Reason: ReasonInvalidCredentials, KeyHint: hint}
	default:
		c.log.Warn("api key probe unexpected status", zap.String("provider", provider), zap.Int("status", code))
		return domain.APIKeyStatus{Reason: ReasonUnexpectedStatus, KeyHint: hint}
	}
}
