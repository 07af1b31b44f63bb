package email

import (
	"github.com/abbydulski/Runway-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig prefers Resend, then SMTP, and falls back to dropping mail.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	var provider Provider
	switch {
	case cfg.Email.ResendAPIKey != "":
		provider = NewResend(cfg.Email.ResendAPIKey, cfg.Email.From)
	case cfg.Email.SMTPHost != "":
		provider = NewSMTP(SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
		})
	default:
		provider = NoOpProvider{}
	}
	log.Named("providers.email").Info("email provider selected", zap.String("provider", provider.Name()))
	return provider
}
