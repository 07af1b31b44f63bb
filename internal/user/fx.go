package user

import (
	"github.com/abbydulski/Runway-sub000/internal/user/repository"
	"github.com/abbydulski/Runway-sub000/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
