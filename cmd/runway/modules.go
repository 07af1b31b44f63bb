package main

import (
	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/abbydulski/Runway-sub000/internal/authorization"
	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/integration"
	"github.com/abbydulski/Runway-sub000/internal/invitation"
	"github.com/abbydulski/Runway-sub000/internal/observability"
	"github.com/abbydulski/Runway-sub000/internal/onboarding"
	"github.com/abbydulski/Runway-sub000/internal/organization"
	"github.com/abbydulski/Runway-sub000/internal/providers/email"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
	"github.com/abbydulski/Runway-sub000/internal/provisioning"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	"github.com/abbydulski/Runway-sub000/internal/redisclient"
	"github.com/abbydulski/Runway-sub000/internal/signup"
	"github.com/abbydulski/Runway-sub000/internal/team"
	"github.com/abbydulski/Runway-sub000/internal/user"
	"github.com/abbydulski/Runway-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// infrastructure is shared by every command that touches the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		db.Module,
	)
}

func domains() fx.Option {
	return fx.Options(
		fx.Provide(RegisterSnowflake),
		redisclient.Module,
		ratelimit.Module,
		authorization.Module,
		session.Module,
		user.Module,
		organization.Module,
		team.Module,
		email.Module,
		slack.Module,
		integration.Module,
		provisioning.Module,
		onboarding.Module,
		invitation.Module,
		signup.Module,
	)
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
