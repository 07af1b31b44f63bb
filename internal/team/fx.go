package team

import (
	"github.com/abbydulski/Runway-sub000/internal/team/repository"
	"github.com/abbydulski/Runway-sub000/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
