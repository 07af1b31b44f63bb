package integration

import (
	"github.com/abbydulski/Runway-sub000/internal/integration/oauth"
	"github.com/abbydulski/Runway-sub000/internal/integration/repository"
	"github.com/abbydulski/Runway-sub000/internal/integration/service"
	"github.com/abbydulski/Runway-sub000/internal/integration/status"
	"go.uber.org/fx"
)

var Module = fx.Module("integration.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(oauth.NewConnector),
	fx.Provide(status.NewChecker),
)
