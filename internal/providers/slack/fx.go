package slack

import (
	"github.com/abbydulski/Runway-sub000/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
	fx.Provide(NewProviderFromConfig),
)

func NewFromConfig(cfg config.Config) Client {
	return New(WithTimeout(cfg.Provisioning.CallTimeout))
}

func NewProviderFromConfig(cfg config.Config) Provider {
	return New(WithTimeout(cfg.Provisioning.CallTimeout))
}
